// --- File: internal/metrics/sink.go ---
// Package metrics implements the append-only queue contract from spec.md
// §4.5: every emission enqueues a flat label->value record onto one of a
// fixed set of named queues; a separate scraper process drains them. This
// package never reads the queues back.
package metrics

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// Queue names the core emits onto.
const (
	QueueIncomingCallTotal       = "incoming_call_total"
	QueueIncomingCallFailedTotal = "incoming_call_failed_total"
	QueuePushNotificationSuccess = "push_notification_success_total"
	QueuePushNotificationFailed  = "push_notification_failed_total"
	QueueRoundtripHistogram      = "roundtrip_seconds"
	QueueHangupReasonTotal       = "hangup_reason_total"
)

// Sink enqueues a labeled record onto the named queue.
type Sink interface {
	Emit(ctx context.Context, queue string, labels map[string]string)
}

// appender is the minimal contract a cache client must offer; satisfied
// by internal/storage/rediskv.Client.
type appender interface {
	Append(ctx context.Context, queue, record string, maxLen int64) error
}

// RedisSink appends JSON-encoded records to a capped Redis list per
// queue, matching spec.md §6's "list-append/trim operations".
type RedisSink struct {
	client appender
	maxLen int64
	logger *slog.Logger
}

// NewRedisSink wires a RedisSink; maxLen bounds each queue so an
// unscraped backlog cannot grow without limit.
func NewRedisSink(client appender, maxLen int64, logger *slog.Logger) *RedisSink {
	return &RedisSink{client: client, maxLen: maxLen, logger: logger.With("component", "MetricsSink")}
}

func (s *RedisSink) Emit(ctx context.Context, queue string, labels map[string]string) {
	record, err := json.Marshal(labels)
	if err != nil {
		s.logger.Error("Failed to marshal metric record", "err", err, "queue", queue)
		return
	}
	if err := s.client.Append(ctx, queue, string(record), s.maxLen); err != nil {
		s.logger.Warn("Failed to append metric record", "err", err, "queue", queue)
	}
}

// MemorySink collects emitted records in-process for tests.
type MemorySink struct {
	mu      sync.Mutex
	records []Record
}

// Record is one captured emission, used only by MemorySink.
type Record struct {
	Queue  string
	Labels map[string]string
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Emit(_ context.Context, queue string, labels map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, Record{Queue: queue, Labels: labels})
}

func (s *MemorySink) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}
