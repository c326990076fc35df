package enrich

import (
	"context"
	"fmt"

	"github.com/recallion/recallion/internal/core"
	"github.com/recallion/recallion/pkg/log"
)

// Enricher derives the structured fields of a memory from its raw content:
// summary, keywords, tags, importance and insight via one extraction call,
// plus an embedding vector via a second call.
type Enricher struct {
	store core.MemoryStore
	ai    core.ModelGateway
}

func NewEnricher(store core.MemoryStore, ai core.ModelGateway) *Enricher {
	return &Enricher{
		store: store,
		ai:    ai,
	}
}

// Process enriches one memory scoped by its owner. Extraction failure is
// fatal for the run; the raw content is never touched, so a failed run leaves
// the memory exactly as submitted. Embedding failure is not fatal: the memory
// keeps its derived fields and simply stays out of vector search.
func (e *Enricher) Process(ctx context.Context, ownerID, memoryID string) error {
	logger := log.FromCtx(ctx)

	mem, err := e.store.Get(ctx, ownerID, memoryID)
	if err != nil {
		return err
	}

	extraction, err := e.ai.ExtractMemory(ctx, mem.Content)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	var embedding []float32
	vec, err := e.ai.Embed(ctx, extraction.Summary+" "+mem.Content)
	if err != nil {
		logger.Warn().Err(err).Str("memory_id", memoryID).Msg("embedding failed, storing memory without a vector")
	} else {
		embedding = vec
	}

	importance := core.ClampImportance(extraction.Importance)
	patch := core.MemoryPatch{
		Summary:    &extraction.Summary,
		Keywords:   &extraction.Keywords,
		Tags:       &extraction.Tags,
		Importance: &importance,
		AIInsight:  &extraction.AIInsight,
	}
	if embedding != nil {
		patch.Embedding = &embedding
	}

	if err := e.store.Update(ctx, ownerID, memoryID, patch); err != nil {
		return fmt.Errorf("failed to persist enrichment: %w", err)
	}

	logger.Info().
		Str("memory_id", memoryID).
		Int("importance", importance).
		Bool("embedded", embedding != nil).
		Msg("memory enriched")
	return nil
}
