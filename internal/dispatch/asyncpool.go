// --- File: internal/dispatch/asyncpool.go ---
package dispatch

import (
	"context"
	"log/slog"

	"golang.org/x/sync/semaphore"
)

// AsyncPool runs fire-and-forget tasks (push dispatch, response-log
// writes) without ever blocking the caller, while bounding how many run
// concurrently — spec.md §9's "start work that must not delay the HTTP
// reply... use a queue with backpressure to prevent unbounded task
// growth." Go() always returns immediately; the bound is enforced by a
// semaphore acquired inside the spawned goroutine, not by blocking Go
// itself.
type AsyncPool struct {
	sem    *semaphore.Weighted
	logger *slog.Logger
}

// NewAsyncPool bounds concurrent in-flight tasks to maxConcurrent.
func NewAsyncPool(maxConcurrent int64, logger *slog.Logger) *AsyncPool {
	return &AsyncPool{
		sem:    semaphore.NewWeighted(maxConcurrent),
		logger: logger.With("component", "AsyncPool"),
	}
}

// Go schedules task to run on its own goroutine once a slot is free.
// task must recover its own panics; Go itself never blocks the caller.
func (p *AsyncPool) Go(task func(ctx context.Context)) {
	go func() {
		ctx := context.Background()
		if err := p.sem.Acquire(ctx, 1); err != nil {
			p.logger.Error("Failed to acquire async pool slot", "err", err)
			return
		}
		defer p.sem.Release(1)

		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("Recovered panic in async task", "panic", r)
			}
		}()

		task(ctx)
	}()
}
