// --- File: internal/dispatch/asyncpool_test.go ---
package dispatch_test

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tinywideclouds/callwake-middleware/internal/dispatch"
)

func TestAsyncPool_RunsTasksWithoutBlockingCaller(t *testing.T) {
	pool := dispatch.NewAsyncPool(2, slog.New(slog.NewTextHandler(io.Discard, nil)))

	var completed int32
	start := time.Now()
	for i := 0; i < 5; i++ {
		pool.Go(func(ctx context.Context) {
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&completed, 1)
		})
	}
	// Scheduling 5 tasks must return near-instantly regardless of bound.
	assert.Less(t, time.Since(start), 15*time.Millisecond)

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&completed) == 5
	}, time.Second, 5*time.Millisecond)
}

func TestAsyncPool_RecoversPanics(t *testing.T) {
	pool := dispatch.NewAsyncPool(1, slog.New(slog.NewTextHandler(io.Discard, nil)))
	done := make(chan struct{})

	pool.Go(func(ctx context.Context) {
		defer close(done)
		panic("boom")
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task never completed")
	}

	// Pool must still be usable after a panicking task.
	ran := make(chan struct{})
	pool.Go(func(ctx context.Context) { close(ran) })
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("pool did not recover from panic")
	}
}
