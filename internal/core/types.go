package core

import "time"

const (
	AppName      = "Recallion"
	AppUserAgent = "Recallion/0.1"
	AppVersion   = "0.1.0"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	ImportanceMin = 1
	ImportanceMax = 10
)

// Memory is a single owner-scoped record. Content is the only field the author
// writes directly; Summary through Embedding are derived by the enrichment
// pipeline and stay zero-valued until it has run.
type Memory struct {
	ID         string     `json:"id"`
	OwnerID    string     `json:"owner_id"`
	Content    string     `json:"content"`
	Summary    string     `json:"summary,omitempty"`
	Keywords   []string   `json:"keywords,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
	Importance int        `json:"importance,omitempty"`
	AIInsight  string     `json:"ai_insight,omitempty"`
	Embedding  []float32  `json:"-"`
	ImageURL   string     `json:"image_url,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// Enriched reports whether the derived fields have been populated.
func (m Memory) Enriched() bool {
	return m.Summary != "" || m.Importance != 0
}

// MemoryPatch is a partial update. Nil fields are left untouched.
type MemoryPatch struct {
	Content    *string
	Summary    *string
	Keywords   *[]string
	Tags       *[]string
	Importance *int
	AIInsight  *string
	Embedding  *[]float32
	ImageURL   *string
}

// ChatMessage is one turn of a caller-held transcript. Transcripts are not
// persisted; every chat request carries the full history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RetrievedMemory pairs a memory with its retrieval score: cosine similarity
// for vector hits, zero on the importance-ranked fallback path.
type RetrievedMemory struct {
	Memory Memory
	Score  float32
}

// Extraction is the structured result of one enrichment model call.
type Extraction struct {
	Summary    string   `json:"summary"`
	Keywords   []string `json:"keywords"`
	Tags       []string `json:"tags"`
	Importance int      `json:"importance"`
	AIInsight  string   `json:"ai_insight"`
}

// ReviewItem is one per-memory verdict from a batched review call.
type ReviewItem struct {
	ID            string `json:"id"`
	NewImportance int    `json:"new_importance"`
	ReviewInsight string `json:"review_insight"`
}

// ClampImportance forces a model-supplied score into the valid range.
func ClampImportance(v int) int {
	if v < ImportanceMin {
		return ImportanceMin
	}
	if v > ImportanceMax {
		return ImportanceMax
	}
	return v
}
