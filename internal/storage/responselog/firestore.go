// --- File: internal/storage/responselog/firestore.go ---
// Package responselog persists the durable, lossy-on-crash record of
// every device response the Response Intake observes: platform,
// round-trip latency, and whether the device was available. Writes are
// always fired asynchronously so they never hold up the HTTP reply
// (spec.md §4.4 step 5).
package responselog

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"

	"github.com/tinywideclouds/callwake-middleware/pkg/calldevice"
)

// Entry is one response-log record.
type Entry struct {
	Platform      calldevice.Platform
	RoundtripSecs float64
	Available     bool
}

// Writer persists Entry records. Implementations must tolerate being
// called from a goroutine that nobody waits on.
type Writer interface {
	Write(ctx context.Context, e Entry)
}

// FirestoreWriter writes one document per response, grounded on the
// teacher's firestore token store (collection + doc-per-record, server
// timestamp for ordering).
type FirestoreWriter struct {
	client     *firestore.Client
	collection string
	logger     *slog.Logger
}

// NewFirestoreWriter wraps an already-connected Firestore client.
func NewFirestoreWriter(client *firestore.Client, collection string, logger *slog.Logger) *FirestoreWriter {
	return &FirestoreWriter{client: client, collection: collection, logger: logger.With("component", "ResponseLog")}
}

// Write persists e. Errors are logged, never returned — by the time this
// runs the HTTP response has already been sent, and a lost log entry is
// an acceptable loss per spec.md §6 ("lossy on process crash is
// acceptable").
func (w *FirestoreWriter) Write(ctx context.Context, e Entry) {
	_, _, err := w.client.Collection(w.collection).Add(ctx, map[string]interface{}{
		"platform":       string(e.Platform),
		"roundtrip_time": e.RoundtripSecs,
		"available":      e.Available,
		"date":           firestore.ServerTimestamp,
	})
	if err != nil {
		w.logger.Error("Failed to write response log entry", "err", fmt.Errorf("write response log: %w", err))
	}
}

