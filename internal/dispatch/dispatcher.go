// --- File: internal/dispatch/dispatcher.go ---
// Package dispatch is the platform-agnostic push dispatch facade
// described in spec.md §4.2: given a Device and a call payload, it hands
// off to whichever Transport serves that device's platform and
// classifies the result.
package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/tinywideclouds/callwake-middleware/internal/metrics"
	"github.com/tinywideclouds/callwake-middleware/pkg/calldevice"
)

// Outcome classifies what happened when a push was handed to a
// transport, per spec.md §4.2.
type Outcome int

const (
	Delivered Outcome = iota
	InvalidToken
	Transient
	AuthFail
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case InvalidToken:
		return "invalid-token"
	case Transient:
		return "transient"
	case AuthFail:
		return "auth-fail"
	default:
		return "unknown"
	}
}

// CallPayload is the fixed record every transport delivers for a call
// wakeup, matching spec.md §4.2's payload shape.
type CallPayload struct {
	Type             string  `json:"type"`
	UniqueKey        string  `json:"unique_key"`
	Phonenumber      string  `json:"phonenumber"`
	CallerID         string  `json:"caller_id"`
	ResponseAPIURL   string  `json:"response_api_url"`
	MessageStartTime float64 `json:"message_start_time"`
	Attempt          int     `json:"attempt"`
}

// TextPayload is the shape used for the old-token migration notice
// (SPEC_FULL §5.2); it carries a plain message instead of call details.
type TextPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Transport is the capability set a platform-specific push client
// implements: send one push, and release any held resources on shutdown.
// It receives the full Device rather than a bare token because a
// transport (APNs in particular) picks its gateway from device fields
// like Sandbox and AppPushCredentialRef.
type Transport interface {
	SendCall(ctx context.Context, device calldevice.Device, payload CallPayload) (Outcome, error)
	SendText(ctx context.Context, device calldevice.Device, payload TextPayload) (Outcome, error)
	Release() error
}

// Dispatcher routes pushes to the Transport registered for a device's
// platform and runs every send on the bounded async pool so it never
// blocks the Coordinator's request goroutine.
type Dispatcher struct {
	transports     map[calldevice.Platform]Transport
	pool           *AsyncPool
	emitter        metrics.Sink
	responseAPIURL string
	logger         *slog.Logger
}

// New wires a Dispatcher. transports need not cover every Platform value;
// a push for a platform with no registered transport logs a warning and
// is dropped without emitting a metric.
func New(transports map[calldevice.Platform]Transport, pool *AsyncPool, emitter metrics.Sink, responseAPIURL string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		transports:     transports,
		pool:           pool,
		emitter:        emitter,
		responseAPIURL: responseAPIURL,
		logger:         logger.With("component", "Dispatcher"),
	}
}

// SendCallPush schedules the call wakeup push asynchronously and returns
// immediately; spec.md §4.2: "fire-and-forget from the Coordinator's
// perspective... must not raise into the Coordinator." The classified
// Outcome is observable only via the metrics emissions this schedules,
// never returned synchronously — there is no caller left to hand it to
// by the time the transport responds.
func (d *Dispatcher) SendCallPush(device calldevice.Device, callID, phonenumber, callerID string, attempt int) {
	payload := CallPayload{
		Type:             "call",
		UniqueKey:        callID,
		Phonenumber:      phonenumber,
		CallerID:         callerID,
		ResponseAPIURL:   d.responseAPIURL,
		MessageStartTime: float64(time.Now().UnixNano()) / 1e9,
		Attempt:          attempt,
	}

	d.pool.Go(func(ctx context.Context) {
		transport, ok := d.transports[device.Platform]
		if !ok {
			d.logger.Warn("No transport registered for platform", "call_id", callID, "platform", device.Platform)
			return
		}

		outcome, err := transport.SendCall(ctx, device, payload)
		d.recordOutcome(ctx, callID, device.Platform, outcome, err)
	})
}

// SendOldTokenNotice schedules the "you won't be reachable on this
// device" migration push (SPEC_FULL §5.2) for a device that just lost
// its registration to a newer one.
func (d *Dispatcher) SendOldTokenNotice(device calldevice.Device, message string) {
	payload := TextPayload{Type: "message", Message: message}

	d.pool.Go(func(ctx context.Context) {
		transport, ok := d.transports[device.Platform]
		if !ok {
			d.logger.Warn("No transport registered for platform", "platform", device.Platform)
			return
		}
		outcome, err := transport.SendText(ctx, device, payload)
		d.recordOutcome(ctx, "", device.Platform, outcome, err)
	})
}

func (d *Dispatcher) recordOutcome(ctx context.Context, callID string, platform calldevice.Platform, outcome Outcome, err error) {
	if err != nil {
		d.logger.Error("Push transport failed", "call_id", callID, "platform", platform, "err", err)
		if outcome == Delivered {
			// A transport error is never reported as a delivery.
			return
		}
	}

	switch outcome {
	case Delivered:
		d.emitter.Emit(ctx, metrics.QueuePushNotificationSuccess, map[string]string{"platform": string(platform)})
	case InvalidToken:
		d.logger.Warn("Device token invalid; future version may prune device", "call_id", callID, "platform", platform)
		d.emitter.Emit(ctx, metrics.QueuePushNotificationFailed, map[string]string{"platform": string(platform), "reason": outcome.String()})
	case Transient, AuthFail:
		d.emitter.Emit(ctx, metrics.QueuePushNotificationFailed, map[string]string{"platform": string(platform), "reason": outcome.String()})
	}
}
