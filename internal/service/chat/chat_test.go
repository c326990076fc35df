package chat

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/recallion/recallion/internal/config"
	"github.com/recallion/recallion/internal/core"
)

type stubStore struct {
	listFunc   func(ctx context.Context, ownerID string, orderBy core.OrderBy, limit int) ([]core.Memory, error)
	searchFunc func(ctx context.Context, ownerID string, vector []float32, threshold float32, topK int) ([]core.RetrievedMemory, error)
}

func (s *stubStore) Insert(ctx context.Context, m *core.Memory) error { panic("unused") }

func (s *stubStore) Get(ctx context.Context, ownerID, id string) (core.Memory, error) {
	panic("unused")
}

func (s *stubStore) ListByOwner(ctx context.Context, ownerID string, orderBy core.OrderBy, limit int) ([]core.Memory, error) {
	return s.listFunc(ctx, ownerID, orderBy, limit)
}

func (s *stubStore) Update(ctx context.Context, ownerID, id string, patch core.MemoryPatch) error {
	panic("unused")
}

func (s *stubStore) Delete(ctx context.Context, ownerID, id string) error { panic("unused") }

func (s *stubStore) SimilaritySearch(ctx context.Context, ownerID string, vector []float32, threshold float32, topK int) ([]core.RetrievedMemory, error) {
	return s.searchFunc(ctx, ownerID, vector, threshold, topK)
}

type stubGateway struct {
	embedFunc  func(ctx context.Context, input string) ([]float32, error)
	streamFunc func(ctx context.Context, messages []core.ChatMessage) (io.ReadCloser, error)
}

func (g *stubGateway) ExtractMemory(ctx context.Context, content string) (core.Extraction, error) {
	panic("unused")
}

func (g *stubGateway) ReviewMemories(ctx context.Context, digest string) ([]core.ReviewItem, error) {
	panic("unused")
}

func (g *stubGateway) ChatStream(ctx context.Context, messages []core.ChatMessage) (io.ReadCloser, error) {
	return g.streamFunc(ctx, messages)
}

func (g *stubGateway) Embed(ctx context.Context, input string) ([]float32, error) {
	return g.embedFunc(ctx, input)
}

func retrievalConfig(topK int) *config.RetrievalConfig {
	return &config.RetrievalConfig{TopK: topK, Threshold: 0.3, ContextTokenBudget: 2000}
}

func TestService_StreamBuildsSystemPrompt(t *testing.T) {
	store := &stubStore{
		searchFunc: func(ctx context.Context, ownerID string, vector []float32, threshold float32, topK int) ([]core.RetrievedMemory, error) {
			return []core.RetrievedMemory{
				{Memory: core.Memory{Summary: "likes hiking", Importance: 6}, Score: 0.9},
			}, nil
		},
	}

	var embedQuery string
	var sent []core.ChatMessage
	ai := &stubGateway{
		embedFunc: func(ctx context.Context, input string) ([]float32, error) {
			embedQuery = input
			return []float32{1}, nil
		},
		streamFunc: func(ctx context.Context, messages []core.ChatMessage) (io.ReadCloser, error) {
			sent = messages
			return io.NopCloser(strings.NewReader("")), nil
		},
	}

	svc := NewService(NewRetriever(retrievalConfig(5), store, ai), NewAssembler(2000), ai)
	history := []core.ChatMessage{
		{Role: core.RoleUser, Content: "old question"},
		{Role: core.RoleAssistant, Content: "old answer"},
		{Role: core.RoleUser, Content: "what do I like?"},
	}

	body, err := svc.Stream(context.Background(), "owner-a", history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer body.Close()

	if embedQuery != "what do I like?" {
		t.Errorf("retrieval query = %q, want the last user message", embedQuery)
	}
	if len(sent) != len(history)+1 {
		t.Fatalf("sent %d messages, want history plus system prompt", len(sent))
	}
	if sent[0].Role != core.RoleSystem {
		t.Errorf("first message role = %q, want system", sent[0].Role)
	}
	if !strings.Contains(sent[0].Content, "RECALLION") {
		t.Error("system prompt must carry the assistant persona")
	}
	if !strings.Contains(sent[0].Content, "[Memory 1] likes hiking (importance: 6/10)") {
		t.Errorf("system prompt missing the memory context:\n%s", sent[0].Content)
	}
	for i, msg := range history {
		if sent[i+1] != msg {
			t.Errorf("history message %d altered: %+v", i, sent[i+1])
		}
	}
}

func TestService_StreamNoMemories(t *testing.T) {
	store := &stubStore{
		searchFunc: func(ctx context.Context, ownerID string, vector []float32, threshold float32, topK int) ([]core.RetrievedMemory, error) {
			return nil, nil
		},
		listFunc: func(ctx context.Context, ownerID string, orderBy core.OrderBy, limit int) ([]core.Memory, error) {
			return nil, nil
		},
	}

	var sent []core.ChatMessage
	ai := &stubGateway{
		embedFunc: func(ctx context.Context, input string) ([]float32, error) {
			return []float32{1}, nil
		},
		streamFunc: func(ctx context.Context, messages []core.ChatMessage) (io.ReadCloser, error) {
			sent = messages
			return io.NopCloser(strings.NewReader("")), nil
		},
	}

	svc := NewService(NewRetriever(retrievalConfig(5), store, ai), NewAssembler(2000), ai)
	body, err := svc.Stream(context.Background(), "owner-a", []core.ChatMessage{{Role: core.RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer body.Close()

	if !strings.Contains(sent[0].Content, NoMemoriesSentinel) {
		t.Error("system prompt must state that no memories are stored")
	}
}
