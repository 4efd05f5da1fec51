// --- File: internal/coordinator/coordinator_test.go ---
package coordinator_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinywideclouds/callwake-middleware/internal/coordinator"
	"github.com/tinywideclouds/callwake-middleware/internal/dispatch"
	"github.com/tinywideclouds/callwake-middleware/internal/metrics"
	"github.com/tinywideclouds/callwake-middleware/pkg/calldevice"
	"github.com/tinywideclouds/callwake-middleware/pkg/rendezvous"
)

type memStore struct {
	mu   sync.Mutex
	vals map[string]string
}

func newMemStore() *memStore { return &memStore{vals: make(map[string]string)} }

func (s *memStore) Put(_ context.Context, key, value string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vals[key] = value
	return nil
}

func (s *memStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vals[key]
	if !ok {
		return "", rendezvous.ErrNotFound
	}
	return v, nil
}

func (s *memStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.vals[key]
	return ok, nil
}

func (s *memStore) set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vals[key] = value
}

type stubDevices struct {
	device calldevice.Device
	err    error
}

func (d stubDevices) Get(_ context.Context, _ string) (calldevice.Device, error) {
	return d.device, d.err
}

type stubTransport struct {
	outcome dispatch.Outcome
	calls   *int32ptr
}

type int32ptr struct {
	mu sync.Mutex
	n  int
}

func (p *int32ptr) inc() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.n++
}

func (p *int32ptr) get() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.n
}

func (t stubTransport) SendCall(_ context.Context, _ calldevice.Device, _ dispatch.CallPayload) (dispatch.Outcome, error) {
	t.calls.inc()
	return t.outcome, nil
}
func (t stubTransport) SendText(_ context.Context, _ calldevice.Device, _ dispatch.TextPayload) (dispatch.Outcome, error) {
	return t.outcome, nil
}
func (t stubTransport) Release() error { return nil }

func newTestLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestCoordinator_NoDeviceRegistered_ReturnsNoDeviceVerdict(t *testing.T) {
	sink := metrics.NewMemorySink()
	pool := dispatch.NewAsyncPool(4, newTestLogger())
	transport := stubTransport{outcome: dispatch.Delivered, calls: &int32ptr{}}
	d := dispatch.New(map[calldevice.Platform]dispatch.Transport{calldevice.PlatformAPNS: transport}, pool, sink, "", newTestLogger())

	c := coordinator.New(newMemStore(), stubDevices{err: calldevice.ErrNotFound}, d, sink, 200*time.Millisecond, 60*time.Millisecond, newTestLogger())

	attempt := c.HandleIncomingCall(context.Background(), "100000000", "0123456789", "Caller", "")
	assert.Equal(t, coordinator.VerdictNoDevice, attempt.Verdict)
}

func TestCoordinator_DeviceAnswersAvailable_ReturnsAvailableVerdict(t *testing.T) {
	sink := metrics.NewMemorySink()
	pool := dispatch.NewAsyncPool(4, newTestLogger())
	transport := stubTransport{outcome: dispatch.Delivered, calls: &int32ptr{}}
	d := dispatch.New(map[calldevice.Platform]dispatch.Transport{calldevice.PlatformAPNS: transport}, pool, sink, "", newTestLogger())

	store := newMemStore()
	device := calldevice.Device{Platform: calldevice.PlatformAPNS, PushToken: "tok"}
	c := coordinator.New(store, stubDevices{device: device}, d, sink, 300*time.Millisecond, 80*time.Millisecond, newTestLogger())

	go func() {
		time.Sleep(30 * time.Millisecond)
		store.set(rendezvous.CallKey("fixed-call-id"), rendezvous.AnswerAvailable)
	}()

	attempt := c.HandleIncomingCall(context.Background(), "100000000", "0123456789", "Caller", "fixed-call-id")
	require.Equal(t, coordinator.VerdictAvailable, attempt.Verdict)
	assert.Equal(t, "fixed-call-id", attempt.CallID)
}

func TestCoordinator_DeviceAnswersUnavailable_ReturnsUnavailableVerdict(t *testing.T) {
	sink := metrics.NewMemorySink()
	pool := dispatch.NewAsyncPool(4, newTestLogger())
	transport := stubTransport{outcome: dispatch.Delivered, calls: &int32ptr{}}
	d := dispatch.New(map[calldevice.Platform]dispatch.Transport{calldevice.PlatformAPNS: transport}, pool, sink, "", newTestLogger())

	store := newMemStore()
	device := calldevice.Device{Platform: calldevice.PlatformAPNS, PushToken: "tok"}
	c := coordinator.New(store, stubDevices{device: device}, d, sink, 300*time.Millisecond, 80*time.Millisecond, newTestLogger())

	go func() {
		time.Sleep(30 * time.Millisecond)
		store.set(rendezvous.CallKey("fixed-call-id-2"), rendezvous.AnswerUnavailable)
	}()

	attempt := c.HandleIncomingCall(context.Background(), "100000000", "0123456789", "Caller", "fixed-call-id-2")
	assert.Equal(t, coordinator.VerdictUnavailable, attempt.Verdict)
}

func TestCoordinator_DeviceNeverAnswers_TimesOutWithResends(t *testing.T) {
	sink := metrics.NewMemorySink()
	pool := dispatch.NewAsyncPool(4, newTestLogger())
	calls := &int32ptr{}
	transport := stubTransport{outcome: dispatch.Delivered, calls: calls}
	d := dispatch.New(map[calldevice.Platform]dispatch.Transport{calldevice.PlatformAPNS: transport}, pool, sink, "", newTestLogger())

	device := calldevice.Device{Platform: calldevice.PlatformAPNS, PushToken: "tok"}
	// wait=200ms, resend=50ms -> maxAttempts = 4-1 = 3 pushes total (initial plus 2 resends).
	c := coordinator.New(newMemStore(), stubDevices{device: device}, d, sink, 200*time.Millisecond, 50*time.Millisecond, newTestLogger())

	attempt := c.HandleIncomingCall(context.Background(), "100000000", "0123456789", "Caller", "timeout-call")
	assert.Equal(t, coordinator.VerdictTimeout, attempt.Verdict)
	assert.Equal(t, 3, attempt.AttemptsSent)

	require.Eventually(t, func() bool { return calls.get() == 3 }, time.Second, 5*time.Millisecond)
}

func TestCoordinator_GeneratesCallIDWhenOmitted(t *testing.T) {
	sink := metrics.NewMemorySink()
	pool := dispatch.NewAsyncPool(4, newTestLogger())
	transport := stubTransport{outcome: dispatch.Delivered, calls: &int32ptr{}}
	d := dispatch.New(map[calldevice.Platform]dispatch.Transport{calldevice.PlatformAPNS: transport}, pool, sink, "", newTestLogger())

	device := calldevice.Device{Platform: calldevice.PlatformAPNS, PushToken: "tok"}
	c := coordinator.New(newMemStore(), stubDevices{device: device}, d, sink, 60*time.Millisecond, 20*time.Millisecond, newTestLogger())

	attempt := c.HandleIncomingCall(context.Background(), "100000000", "0123456789", "Caller", "")
	assert.NotEmpty(t, attempt.CallID)
	assert.Len(t, attempt.CallID, 32)
}
