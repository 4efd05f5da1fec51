// --- File: internal/coordinator/coordinator.go ---
// Package coordinator implements the incoming-call rendezvous engine:
// it seeds a rendezvous key, fires the initial wakeup push, then polls
// the same key for up to a configured deadline while resending the push
// on a slower cadence, until the device answers or the deadline passes.
package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tinywideclouds/callwake-middleware/internal/dispatch"
	"github.com/tinywideclouds/callwake-middleware/internal/metrics"
	"github.com/tinywideclouds/callwake-middleware/pkg/calldevice"
	"github.com/tinywideclouds/callwake-middleware/pkg/rendezvous"
)

// Verdict is the outcome of one incoming-call rendezvous.
type Verdict string

const (
	VerdictAvailable   Verdict = "available"
	VerdictUnavailable Verdict = "unavailable"
	VerdictTimeout     Verdict = "timeout"
	VerdictNoDevice    Verdict = "no-device"
)

// CallAttempt records one rendezvous from seed to verdict.
type CallAttempt struct {
	CallID       string
	SipUserID    string
	CallerID     string
	Phonenumber  string
	Device       calldevice.Device
	StartedAt    time.Time
	AttemptsSent int
	Verdict      Verdict
}

// pollInterval is how often the wait loop re-checks the rendezvous key.
// 10ms matches the original switch-side loop's tick, fine-grained enough
// that the ACK/NAK reply never trails a real device's response by more
// than a few milliseconds.
const pollInterval = 10 * time.Millisecond

// Coordinator runs the rendezvous loop described above.
type Coordinator struct {
	store          rendezvous.Store
	devices        calldevice.Repository
	dispatcher     *dispatch.Dispatcher
	emitter        metrics.Sink
	waitInterval   time.Duration
	resendInterval time.Duration
	logger         *slog.Logger
}

// New wires a Coordinator. waitInterval is the total deadline (spec.md's
// APP_PUSH_ROUNDTRIP_WAIT); resendInterval is the cadence at which the
// wakeup push is resent while waiting (APP_PUSH_RESEND_INTERVAL).
func New(
	store rendezvous.Store,
	devices calldevice.Repository,
	dispatcher *dispatch.Dispatcher,
	emitter metrics.Sink,
	waitInterval, resendInterval time.Duration,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		store:          store,
		devices:        devices,
		dispatcher:     dispatcher,
		emitter:        emitter,
		waitInterval:   waitInterval,
		resendInterval: resendInterval,
		logger:         logger.With("component", "Coordinator"),
	}
}

// HandleIncomingCall runs one full rendezvous: look up the device, seed
// the rendezvous key, dispatch the wakeup push, and block until the
// device answers or the deadline passes. callID may be empty, in which
// case a fresh one is generated.
func (c *Coordinator) HandleIncomingCall(ctx context.Context, sipUserID, phonenumber, callerID, callID string) CallAttempt {
	if callID == "" {
		callID = strings.ReplaceAll(uuid.New().String(), "-", "")
	}

	attempt := CallAttempt{
		CallID:      callID,
		SipUserID:   sipUserID,
		CallerID:    callerID,
		Phonenumber: phonenumber,
		StartedAt:   time.Now(),
	}

	logger := c.logger.With("call_id", callID, "sip_user_id", sipUserID)
	logger.Info("Incoming call", "phonenumber", phonenumber, "caller_id", callerID)

	device, err := c.devices.Get(ctx, sipUserID)
	if err != nil {
		if errors.Is(err, calldevice.ErrNotFound) {
			logger.Warn("No device registered for sip_user_id")
		} else {
			logger.Error("Device lookup failed", "err", err)
		}
		c.emitter.Emit(ctx, metrics.QueueIncomingCallFailedTotal, map[string]string{"reason": "no_device"})
		attempt.Verdict = VerdictNoDevice
		return attempt
	}
	attempt.Device = device

	// Max possible pushes, counting the initial one. Intentionally one
	// short of the full wait/resend ratio so a resend is never fired right
	// at the deadline with no time left for the device to react.
	maxAttempts := int(c.waitInterval/c.resendInterval) - 1

	key := rendezvous.CallKey(callID)
	if err := c.store.Put(ctx, key, string(device.Platform), c.waitInterval); err != nil {
		logger.Error("Failed to seed rendezvous key", "err", err)
		c.emitter.Emit(ctx, metrics.QueueIncomingCallFailedTotal, map[string]string{"reason": "store_unavailable"})
		attempt.Verdict = VerdictTimeout
		return attempt
	}

	attemptsSent := 1
	c.dispatcher.SendCallPush(device, callID, phonenumber, callerID, attemptsSent)

	waitUntil := time.Now().Add(c.waitInterval)
	nextResend := time.Now().Add(c.resendInterval)

	logger.Info("Waiting for device check-in", "wait_until", waitUntil, "platform", device.Platform)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for time.Now().Before(waitUntil) {
		select {
		case <-ctx.Done():
			attempt.AttemptsSent = attemptsSent
			attempt.Verdict = VerdictTimeout
			return attempt
		case <-ticker.C:
		}

		value, err := c.store.Get(ctx, key)
		if err != nil && !errors.Is(err, rendezvous.ErrNotFound) {
			logger.Error("Rendezvous lookup failed", "err", err)
		}

		switch value {
		case rendezvous.AnswerAvailable:
			logger.Info("Device checked in, sending ACK")
			c.emitter.Emit(ctx, metrics.QueueIncomingCallTotal, map[string]string{"platform": string(device.Platform), "verdict": string(VerdictAvailable)})
			attempt.AttemptsSent = attemptsSent
			attempt.Verdict = VerdictAvailable
			return attempt
		case rendezvous.AnswerUnavailable:
			logger.Info("Device reported unavailable, sending NAK")
			c.emitter.Emit(ctx, metrics.QueueIncomingCallTotal, map[string]string{"platform": string(device.Platform), "verdict": string(VerdictUnavailable)})
			attempt.AttemptsSent = attemptsSent
			attempt.Verdict = VerdictUnavailable
			return attempt
		}

		if time.Now().After(nextResend) && attemptsSent < maxAttempts {
			attemptsSent++
			nextResend = time.Now().Add(c.resendInterval)
			c.dispatcher.SendCallPush(device, callID, phonenumber, callerID, attemptsSent)
		}
	}

	logger.Info("Device did not check in before deadline, sending NAK")
	c.emitter.Emit(ctx, metrics.QueueIncomingCallTotal, map[string]string{"platform": string(device.Platform), "verdict": string(VerdictTimeout)})
	attempt.AttemptsSent = attemptsSent
	attempt.Verdict = VerdictTimeout
	return attempt
}
