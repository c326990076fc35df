package chat

import (
	"context"

	"github.com/recallion/recallion/internal/config"
	"github.com/recallion/recallion/internal/core"
	"github.com/recallion/recallion/pkg/log"
)

// Retriever finds the memories most relevant to a query. Vector search first;
// any failure or an empty result degrades to the owner's most important
// memories. Retrieval never surfaces an error to its caller.
type Retriever struct {
	store     core.MemoryStore
	ai        core.ModelGateway
	topK      int
	threshold float32
}

func NewRetriever(cfg *config.RetrievalConfig, store core.MemoryStore, ai core.ModelGateway) *Retriever {
	return &Retriever{
		store:     store,
		ai:        ai,
		topK:      cfg.TopK,
		threshold: cfg.Threshold,
	}
}

func (r *Retriever) Search(ctx context.Context, ownerID, query string) []core.RetrievedMemory {
	logger := log.FromCtx(ctx)

	vec, err := r.ai.Embed(ctx, query)
	if err != nil {
		logger.Warn().Err(err).Msg("query embedding failed, falling back to importance ranking")
		return r.fallback(ctx, ownerID)
	}

	hits, err := r.store.SimilaritySearch(ctx, ownerID, vec, r.threshold, r.topK)
	if err != nil {
		logger.Warn().Err(err).Msg("similarity search failed, falling back to importance ranking")
		return r.fallback(ctx, ownerID)
	}
	if len(hits) == 0 {
		logger.Debug().Msg("no vector hits above threshold, falling back to importance ranking")
		return r.fallback(ctx, ownerID)
	}
	return hits
}

// fallback returns the owner's memories by descending importance. Scores are
// zero: there is no similarity to report on this path.
func (r *Retriever) fallback(ctx context.Context, ownerID string) []core.RetrievedMemory {
	memories, err := r.store.ListByOwner(ctx, ownerID, core.OrderByImportanceDesc, r.topK)
	if err != nil {
		log.FromCtx(ctx).Error().Err(err).Msg("fallback listing failed, answering without memories")
		return nil
	}

	results := make([]core.RetrievedMemory, 0, len(memories))
	for _, m := range memories {
		results = append(results, core.RetrievedMemory{Memory: m})
	}
	return results
}
