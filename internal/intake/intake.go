// --- File: internal/intake/intake.go ---
// Package intake implements the Response Intake described in spec.md
// §4.4: it receives the device's out-of-band answer to a live call,
// overwrites the rendezvous entry the Coordinator is polling, and
// rejects answers that arrive after the Coordinator's deadline.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tinywideclouds/callwake-middleware/internal/dispatch"
	"github.com/tinywideclouds/callwake-middleware/internal/metrics"
	"github.com/tinywideclouds/callwake-middleware/internal/storage/responselog"
	"github.com/tinywideclouds/callwake-middleware/pkg/calldevice"
	"github.com/tinywideclouds/callwake-middleware/pkg/rendezvous"
)

// ErrUnknownCall is returned when the referenced call has no live
// rendezvous entry: either it never existed or has already resolved and
// been reaped.
var ErrUnknownCall = errors.New("intake: no live call for this unique_key")

// ErrLateResponse is returned when the round trip exceeds the
// Coordinator's wait budget; the store entry is still overwritten, only
// the HTTP outcome differs.
var ErrLateResponse = errors.New("intake: response arrived after deadline")

// Intake resolves device responses against the rendezvous store.
type Intake struct {
	store        rendezvous.Store
	responseLog  responselog.Writer
	pool         *dispatch.AsyncPool
	emitter      metrics.Sink
	waitInterval time.Duration
	logger       *slog.Logger
}

// New wires an Intake. waitInterval must match the Coordinator's
// configured deadline so the late-response check is consistent.
func New(store rendezvous.Store, responseLog responselog.Writer, pool *dispatch.AsyncPool, emitter metrics.Sink, waitInterval time.Duration, logger *slog.Logger) *Intake {
	return &Intake{
		store:        store,
		responseLog:  responseLog,
		pool:         pool,
		emitter:      emitter,
		waitInterval: waitInterval,
		logger:       logger.With("component", "Intake"),
	}
}

// RecordResponse handles one device answer. available defaults to true
// when the device omits the field, matching spec.md §8's
// `available?` (bool, default true).
func (i *Intake) RecordResponse(ctx context.Context, uniqueKey string, messageStartTime float64, available bool) error {
	key := rendezvous.CallKey(uniqueKey)
	logger := i.logger.With("call_id", uniqueKey)

	exists, err := i.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("intake: check call liveness: %w", err)
	}
	if !exists {
		logger.Info("Response for unknown or already-resolved call")
		return ErrUnknownCall
	}

	// Platform placeholder set by the Coordinator at seed time; read
	// before the overwrite below so the response log can attribute the
	// roundtrip to the transport that served it.
	platform, err := i.store.Get(ctx, key)
	if err != nil && !errors.Is(err, rendezvous.ErrNotFound) {
		logger.Error("Failed to read rendezvous placeholder", "err", err)
	}

	answer := rendezvous.AnswerUnavailable
	if available {
		answer = rendezvous.AnswerAvailable
	}
	if err := i.store.Put(ctx, key, answer, i.waitInterval); err != nil {
		return fmt.Errorf("intake: write response: %w", err)
	}

	roundtrip := time.Since(time.Unix(0, int64(messageStartTime*float64(time.Second)))).Seconds()
	logger.Info("Device responded", "roundtrip_seconds", roundtrip, "available", available)

	i.pool.Go(func(bgCtx context.Context) {
		i.responseLog.Write(bgCtx, responselog.Entry{
			Platform:      calldevice.Platform(platform),
			RoundtripSecs: roundtrip,
			Available:     available,
		})
	})
	i.emitter.Emit(ctx, metrics.QueueRoundtripHistogram, map[string]string{"platform": platform})

	if roundtrip > i.waitInterval.Seconds() {
		return ErrLateResponse
	}
	return nil
}
