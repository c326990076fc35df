package review

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/recallion/recallion/internal/config"
	"github.com/recallion/recallion/internal/core"
	"github.com/recallion/recallion/pkg/log"
)

// Report summarizes one review run. Failed maps memory id to the update error
// so a partially applied batch is visible to the caller.
type Report struct {
	Reviewed int
	Failed   map[string]error
}

// Reviewer re-scores a batch of recent memories in a single model call and
// applies the returned adjustments one by one.
type Reviewer struct {
	store         core.MemoryStore
	ai            core.ModelGateway
	batchSize     int
	excerptLength int
}

func NewReviewer(cfg *config.ReviewConfig, store core.MemoryStore, ai core.ModelGateway) *Reviewer {
	return &Reviewer{
		store:         store,
		ai:            ai,
		batchSize:     cfg.BatchSize,
		excerptLength: cfg.ExcerptLength,
	}
}

func (r *Reviewer) Run(ctx context.Context, ownerID string) (Report, error) {
	logger := log.FromCtx(ctx)
	report := Report{Failed: map[string]error{}}

	memories, err := r.store.ListByOwner(ctx, ownerID, core.OrderByCreatedDesc, r.batchSize)
	if err != nil {
		return report, fmt.Errorf("listing memories for review: %w", err)
	}
	if len(memories) == 0 {
		logger.Debug().Str("owner_id", ownerID).Msg("no memories to review")
		return report, nil
	}

	items, err := r.ai.ReviewMemories(ctx, buildDigest(memories, r.excerptLength))
	if err != nil {
		return report, fmt.Errorf("review model call: %w", err)
	}

	known := make(map[string]struct{}, len(memories))
	for _, m := range memories {
		known[m.ID] = struct{}{}
	}

	// Items are applied in response order. A duplicate id simply updates the
	// row again, so the last item wins.
	for _, item := range items {
		if _, ok := known[item.ID]; !ok {
			logger.Warn().Str("memory_id", item.ID).Msg("review returned an id outside the batch, skipping")
			continue
		}

		importance := core.ClampImportance(item.NewImportance)
		patch := core.MemoryPatch{
			Importance: &importance,
			AIInsight:  &item.ReviewInsight,
		}
		if err := r.store.Update(ctx, ownerID, item.ID, patch); err != nil {
			logger.Error().Err(err).Str("memory_id", item.ID).Msg("review update failed")
			report.Failed[item.ID] = err
			continue
		}
		report.Reviewed++
	}

	logger.Info().
		Str("owner_id", ownerID).
		Int("batch", len(memories)).
		Int("reviewed", report.Reviewed).
		Int("failed", len(report.Failed)).
		Msg("memory review finished")
	return report, nil
}

func buildDigest(memories []core.Memory, excerptLength int) string {
	lines := make([]string, 0, len(memories))
	for i, m := range memories {
		lines = append(lines, fmt.Sprintf("[%d] ID: %s | Content: %s | Importance: %d/10 | Created: %s",
			i+1, m.ID, excerpt(m.Content, excerptLength), m.Importance, m.CreatedAt.UTC().Format(time.RFC3339)))
	}
	return strings.Join(lines, "\n")
}

func excerpt(content string, limit int) string {
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	return string(runes[:limit])
}
