// --- File: internal/intake/intake_test.go ---
package intake_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinywideclouds/callwake-middleware/internal/dispatch"
	"github.com/tinywideclouds/callwake-middleware/internal/intake"
	"github.com/tinywideclouds/callwake-middleware/internal/metrics"
	rendezvousstore "github.com/tinywideclouds/callwake-middleware/internal/storage/rendezvous"
	"github.com/tinywideclouds/callwake-middleware/internal/storage/responselog"
	"github.com/tinywideclouds/callwake-middleware/pkg/rendezvous"
)

func newTestLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newLocalStore() *rendezvousstore.LocalStore {
	return rendezvousstore.NewLocalStore(time.Hour)
}

func TestIntake_UnknownCall_ReturnsErrUnknownCall(t *testing.T) {
	store := newLocalStore()
	defer store.Close()

	in := intake.New(store, responselog.NewMemoryWriter(), dispatch.NewAsyncPool(2, newTestLogger()), metrics.NewMemorySink(), time.Second, newTestLogger())

	err := in.RecordResponse(context.Background(), "never-created", float64(time.Now().UnixNano())/1e9, true)
	assert.ErrorIs(t, err, intake.ErrUnknownCall)
}

func TestIntake_OnTimeResponse_Available_ReturnsNil(t *testing.T) {
	store := newLocalStore()
	defer store.Close()

	require.NoError(t, store.Put(context.Background(), rendezvous.CallKey("call-1"), "apns", time.Minute))

	responseLog := responselog.NewMemoryWriter()
	in := intake.New(store, responseLog, dispatch.NewAsyncPool(2, newTestLogger()), metrics.NewMemorySink(), time.Second, newTestLogger())

	start := float64(time.Now().UnixNano()) / 1e9
	err := in.RecordResponse(context.Background(), "call-1", start, true)
	require.NoError(t, err)

	value, getErr := store.Get(context.Background(), rendezvous.CallKey("call-1"))
	require.NoError(t, getErr)
	assert.Equal(t, rendezvous.AnswerAvailable, value)

	require.Eventually(t, func() bool { return len(responseLog.Entries()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "apns", string(responseLog.Entries()[0].Platform))
}

func TestIntake_OnTimeResponse_Unavailable_OverwritesFalse(t *testing.T) {
	store := newLocalStore()
	defer store.Close()

	require.NoError(t, store.Put(context.Background(), rendezvous.CallKey("call-2"), "android", time.Minute))

	in := intake.New(store, responselog.NewMemoryWriter(), dispatch.NewAsyncPool(2, newTestLogger()), metrics.NewMemorySink(), time.Second, newTestLogger())

	start := float64(time.Now().UnixNano()) / 1e9
	err := in.RecordResponse(context.Background(), "call-2", start, false)
	require.NoError(t, err)

	value, getErr := store.Get(context.Background(), rendezvous.CallKey("call-2"))
	require.NoError(t, getErr)
	assert.Equal(t, rendezvous.AnswerUnavailable, value)
}

func TestIntake_LateResponse_ReturnsErrLateResponseButStillOverwrites(t *testing.T) {
	store := newLocalStore()
	defer store.Close()

	require.NoError(t, store.Put(context.Background(), rendezvous.CallKey("call-3"), "apns", time.Minute))

	in := intake.New(store, responselog.NewMemoryWriter(), dispatch.NewAsyncPool(2, newTestLogger()), metrics.NewMemorySink(), 50*time.Millisecond, newTestLogger())

	staleStart := float64(time.Now().Add(-time.Second).UnixNano()) / 1e9
	err := in.RecordResponse(context.Background(), "call-3", staleStart, true)
	assert.ErrorIs(t, err, intake.ErrLateResponse)

	value, getErr := store.Get(context.Background(), rendezvous.CallKey("call-3"))
	require.NoError(t, getErr)
	assert.Equal(t, rendezvous.AnswerAvailable, value, "late response still overwrites the rendezvous entry")
}
