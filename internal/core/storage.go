package core

import "context"

// Memory list orderings supported by the store.
type OrderBy string

const (
	OrderByCreatedDesc    OrderBy = "created_at DESC"
	OrderByImportanceDesc OrderBy = "importance DESC"
)

// MemoryStore is the persistent collaborator. Every operation that names an
// owner must enforce the scope server-side; a client-supplied owner id is never
// trusted on its own.
type MemoryStore interface {
	Insert(ctx context.Context, m *Memory) error
	Get(ctx context.Context, ownerID, id string) (Memory, error)
	ListByOwner(ctx context.Context, ownerID string, orderBy OrderBy, limit int) ([]Memory, error)
	Update(ctx context.Context, ownerID, id string, patch MemoryPatch) error
	Delete(ctx context.Context, ownerID, id string) error

	// SimilaritySearch returns up to topK memories whose stored vectors score at
	// or above threshold against the query vector, best match first.
	SimilaritySearch(ctx context.Context, ownerID string, vector []float32, threshold float32, topK int) ([]RetrievedMemory, error)
}

// BlobStore releases attachment blobs referenced by memories. Deleting a memory
// must also release its attached blob.
type BlobStore interface {
	Remove(ctx context.Context, url string) error
}
