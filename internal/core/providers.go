package core

import (
	"context"
	"io"
)

// ModelGateway is the generative collaborator. The two response shapes of a
// structured call (tool-call arguments vs. free-form JSON content) are resolved
// inside the implementation; callers only ever see the parsed result.
type ModelGateway interface {
	// ExtractMemory runs the schema-constrained enrichment call over raw content.
	ExtractMemory(ctx context.Context, content string) (Extraction, error)

	// ReviewMemories runs one batched re-scoring call over a rendered digest of
	// existing memories.
	ReviewMemories(ctx context.Context, digest string) ([]ReviewItem, error)

	// ChatStream opens a streaming completion. The returned body carries the
	// line-framed delta protocol and must be closed by the caller on every path.
	ChatStream(ctx context.Context, messages []ChatMessage) (io.ReadCloser, error)

	// Embed returns the embedding vector for the input text.
	Embed(ctx context.Context, input string) ([]float32, error)
}
