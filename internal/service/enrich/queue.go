package enrich

import (
	"context"
	"sync"
	"time"

	"github.com/recallion/recallion/pkg/log"
)

const defaultTaskTimeout = 2 * time.Minute

// Queue dispatches enrichment in the background, single-flight per memory id:
// enqueueing an id that is already being processed coalesces into the running
// task instead of racing it with last-write-wins updates.
type Queue struct {
	enricher *Enricher
	timeout  time.Duration

	mu       sync.Mutex
	inflight map[string]struct{}
	wg       sync.WaitGroup
}

func NewQueue(enricher *Enricher) *Queue {
	return &Queue{
		enricher: enricher,
		timeout:  defaultTaskTimeout,
		inflight: make(map[string]struct{}),
	}
}

// Enqueue schedules enrichment of one memory. Returns false when the id is
// already in flight and the call was coalesced. The task outlives the caller's
// request but keeps its log context.
func (q *Queue) Enqueue(ctx context.Context, ownerID, memoryID string) bool {
	q.mu.Lock()
	if _, busy := q.inflight[memoryID]; busy {
		q.mu.Unlock()
		log.FromCtx(ctx).Debug().Str("memory_id", memoryID).Msg("enrichment already in flight, coalescing")
		return false
	}
	q.inflight[memoryID] = struct{}{}
	q.mu.Unlock()

	taskCtx := context.WithoutCancel(ctx)
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		defer q.release(memoryID)

		taskCtx, cancel := context.WithTimeout(taskCtx, q.timeout)
		defer cancel()

		if err := q.enricher.Process(taskCtx, ownerID, memoryID); err != nil {
			log.FromCtx(taskCtx).Error().Err(err).Str("memory_id", memoryID).Msg("enrichment failed")
		}
	}()
	return true
}

func (q *Queue) release(memoryID string) {
	q.mu.Lock()
	delete(q.inflight, memoryID)
	q.mu.Unlock()
}

func (q *Queue) Start(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

// Shutdown waits for in-flight enrichment tasks to drain.
func (q *Queue) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(10 * time.Second):
		return context.DeadlineExceeded
	}
}
