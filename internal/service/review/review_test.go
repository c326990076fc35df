package review

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/recallion/recallion/internal/config"
	"github.com/recallion/recallion/internal/core"
)

type stubStore struct {
	memories []core.Memory
	listErr  error
	updErr   map[string]error
	updates  []appliedUpdate
}

type appliedUpdate struct {
	ownerID string
	id      string
	patch   core.MemoryPatch
}

func (s *stubStore) Insert(ctx context.Context, m *core.Memory) error { panic("unused") }

func (s *stubStore) Get(ctx context.Context, ownerID, id string) (core.Memory, error) {
	panic("unused")
}

func (s *stubStore) ListByOwner(ctx context.Context, ownerID string, orderBy core.OrderBy, limit int) ([]core.Memory, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	if orderBy != core.OrderByCreatedDesc {
		return nil, errors.New("review must fetch most recent first")
	}
	if limit < len(s.memories) {
		return s.memories[:limit], nil
	}
	return s.memories, nil
}

func (s *stubStore) Update(ctx context.Context, ownerID, id string, patch core.MemoryPatch) error {
	if err, ok := s.updErr[id]; ok {
		return err
	}
	s.updates = append(s.updates, appliedUpdate{ownerID: ownerID, id: id, patch: patch})
	return nil
}

func (s *stubStore) Delete(ctx context.Context, ownerID, id string) error { panic("unused") }

func (s *stubStore) SimilaritySearch(ctx context.Context, ownerID string, vector []float32, threshold float32, topK int) ([]core.RetrievedMemory, error) {
	panic("unused")
}

type stubGateway struct {
	reviewFunc func(ctx context.Context, digest string) ([]core.ReviewItem, error)
	calls      int
}

func (g *stubGateway) ExtractMemory(ctx context.Context, content string) (core.Extraction, error) {
	panic("unused")
}

func (g *stubGateway) ReviewMemories(ctx context.Context, digest string) ([]core.ReviewItem, error) {
	g.calls++
	return g.reviewFunc(ctx, digest)
}

func (g *stubGateway) ChatStream(ctx context.Context, messages []core.ChatMessage) (io.ReadCloser, error) {
	panic("unused")
}

func (g *stubGateway) Embed(ctx context.Context, input string) ([]float32, error) {
	panic("unused")
}

func reviewConfig() *config.ReviewConfig {
	return &config.ReviewConfig{BatchSize: 20, ExcerptLength: 200}
}

func sampleMemories() []core.Memory {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []core.Memory{
		{ID: "mem-1", OwnerID: "owner-a", Content: "first memory", Importance: 5, CreatedAt: created},
		{ID: "mem-2", OwnerID: "owner-a", Content: "second memory", Importance: 3, CreatedAt: created.Add(-time.Hour)},
	}
}

func TestRun_AppliesReviewItems(t *testing.T) {
	store := &stubStore{memories: sampleMemories()}
	ai := &stubGateway{
		reviewFunc: func(ctx context.Context, digest string) ([]core.ReviewItem, error) {
			if !strings.Contains(digest, "[1] ID: mem-1 | Content: first memory | Importance: 5/10 | Created: 2026-03-01T12:00:00Z") {
				t.Errorf("digest line malformed:\n%s", digest)
			}
			return []core.ReviewItem{
				{ID: "mem-1", NewImportance: 8, ReviewInsight: "keeps coming up"},
				{ID: "mem-2", NewImportance: 2, ReviewInsight: "stale"},
			}, nil
		},
	}

	report, err := NewReviewer(reviewConfig(), store, ai).Run(context.Background(), "owner-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Reviewed != 2 || len(report.Failed) != 0 {
		t.Errorf("report = %+v", report)
	}
	if len(store.updates) != 2 {
		t.Fatalf("got %d updates", len(store.updates))
	}
	first := store.updates[0]
	if first.ownerID != "owner-a" || first.id != "mem-1" {
		t.Errorf("update scope: %+v", first)
	}
	if *first.patch.Importance != 8 || *first.patch.AIInsight != "keeps coming up" {
		t.Errorf("patch = %+v", first.patch)
	}
}

func TestRun_EmptyBatchSkipsModelCall(t *testing.T) {
	store := &stubStore{}
	ai := &stubGateway{
		reviewFunc: func(ctx context.Context, digest string) ([]core.ReviewItem, error) {
			return nil, nil
		},
	}

	report, err := NewReviewer(reviewConfig(), store, ai).Run(context.Background(), "owner-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Reviewed != 0 {
		t.Errorf("report = %+v", report)
	}
	if ai.calls != 0 {
		t.Error("no model call should be made for an empty batch")
	}
}

func TestRun_ClampsImportance(t *testing.T) {
	store := &stubStore{memories: sampleMemories()}
	ai := &stubGateway{
		reviewFunc: func(ctx context.Context, digest string) ([]core.ReviewItem, error) {
			return []core.ReviewItem{
				{ID: "mem-1", NewImportance: 0, ReviewInsight: "a"},
				{ID: "mem-2", NewImportance: 14, ReviewInsight: "b"},
			}, nil
		},
	}

	if _, err := NewReviewer(reviewConfig(), store, ai).Run(context.Background(), "owner-a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := *store.updates[0].patch.Importance; got != 1 {
		t.Errorf("low score clamped to %d, want 1", got)
	}
	if got := *store.updates[1].patch.Importance; got != 10 {
		t.Errorf("high score clamped to %d, want 10", got)
	}
}

func TestRun_UnknownIDSkipped(t *testing.T) {
	store := &stubStore{memories: sampleMemories()}
	ai := &stubGateway{
		reviewFunc: func(ctx context.Context, digest string) ([]core.ReviewItem, error) {
			return []core.ReviewItem{
				{ID: "mem-other", NewImportance: 9, ReviewInsight: "hallucinated"},
				{ID: "mem-1", NewImportance: 6, ReviewInsight: "fine"},
			}, nil
		},
	}

	report, err := NewReviewer(reviewConfig(), store, ai).Run(context.Background(), "owner-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Reviewed != 1 || len(store.updates) != 1 || store.updates[0].id != "mem-1" {
		t.Errorf("report = %+v, updates = %+v", report, store.updates)
	}
}

func TestRun_DuplicateIDLastWins(t *testing.T) {
	store := &stubStore{memories: sampleMemories()}
	ai := &stubGateway{
		reviewFunc: func(ctx context.Context, digest string) ([]core.ReviewItem, error) {
			return []core.ReviewItem{
				{ID: "mem-1", NewImportance: 4, ReviewInsight: "first verdict"},
				{ID: "mem-1", NewImportance: 9, ReviewInsight: "second verdict"},
			}, nil
		},
	}

	if _, err := NewReviewer(reviewConfig(), store, ai).Run(context.Background(), "owner-a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.updates) != 2 {
		t.Fatalf("got %d updates, both verdicts must be applied in order", len(store.updates))
	}
	last := store.updates[1]
	if *last.patch.Importance != 9 || *last.patch.AIInsight != "second verdict" {
		t.Errorf("last applied patch = %+v", last.patch)
	}
}

func TestRun_GatewayFailureNoUpdates(t *testing.T) {
	store := &stubStore{memories: sampleMemories()}
	ai := &stubGateway{
		reviewFunc: func(ctx context.Context, digest string) ([]core.ReviewItem, error) {
			return nil, core.ErrRateLimited
		},
	}

	_, err := NewReviewer(reviewConfig(), store, ai).Run(context.Background(), "owner-a")
	if !errors.Is(err, core.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if len(store.updates) != 0 {
		t.Error("no updates may be applied when the model call fails")
	}
}

func TestRun_PartialFailureCollected(t *testing.T) {
	store := &stubStore{
		memories: sampleMemories(),
		updErr:   map[string]error{"mem-2": core.ErrNotFound},
	}
	ai := &stubGateway{
		reviewFunc: func(ctx context.Context, digest string) ([]core.ReviewItem, error) {
			return []core.ReviewItem{
				{ID: "mem-1", NewImportance: 6, ReviewInsight: "a"},
				{ID: "mem-2", NewImportance: 7, ReviewInsight: "b"},
			}, nil
		},
	}

	report, err := NewReviewer(reviewConfig(), store, ai).Run(context.Background(), "owner-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Reviewed != 1 {
		t.Errorf("reviewed = %d, want 1", report.Reviewed)
	}
	if !errors.Is(report.Failed["mem-2"], core.ErrNotFound) {
		t.Errorf("failed map = %v", report.Failed)
	}
}

func TestRun_DigestExcerptIsBounded(t *testing.T) {
	long := strings.Repeat("x", 300)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &stubStore{memories: []core.Memory{
		{ID: "mem-1", OwnerID: "owner-a", Content: long, Importance: 5, CreatedAt: created},
	}}
	ai := &stubGateway{
		reviewFunc: func(ctx context.Context, digest string) ([]core.ReviewItem, error) {
			if strings.Contains(digest, strings.Repeat("x", 201)) {
				t.Error("digest content must be cut at the excerpt length")
			}
			if !strings.Contains(digest, strings.Repeat("x", 200)) {
				t.Error("digest should carry the full excerpt")
			}
			return nil, nil
		},
	}

	if _, err := NewReviewer(reviewConfig(), store, ai).Run(context.Background(), "owner-a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
