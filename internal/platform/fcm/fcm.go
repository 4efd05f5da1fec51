// --- File: internal/platform/fcm/fcm.go ---
// Package fcm implements dispatch.Transport for Android devices via
// Firebase Cloud Messaging, classifying delivery outcomes from the
// Firebase Admin SDK's error helpers (SPEC_FULL §3).
package fcm

import (
	"context"
	"fmt"
	"log/slog"

	"firebase.google.com/go/v4/messaging"

	"github.com/tinywideclouds/callwake-middleware/internal/dispatch"
	"github.com/tinywideclouds/callwake-middleware/pkg/calldevice"
)

// sender is the subset of *messaging.Client this package calls.
type sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// Transport dispatches to Android devices through FCM's HTTP v1 API.
type Transport struct {
	client sender
	logger *slog.Logger
}

// NewTransport wraps a Firebase Messaging client.
func NewTransport(client sender, logger *slog.Logger) *Transport {
	return &Transport{client: client, logger: logger.With("component", "FCMTransport")}
}

// SendCall sends a high-priority data-only message carrying the call
// wakeup fields; data-only so the client decides how to surface the
// incoming call rather than the OS rendering a notification itself.
func (t *Transport) SendCall(ctx context.Context, device calldevice.Device, p dispatch.CallPayload) (dispatch.Outcome, error) {
	message := &messaging.Message{
		Token: device.PushToken,
		Data: map[string]string{
			"type":               p.Type,
			"unique_key":         p.UniqueKey,
			"phonenumber":        p.Phonenumber,
			"caller_id":          p.CallerID,
			"response_api_url":   p.ResponseAPIURL,
			"message_start_time": fmt.Sprintf("%f", p.MessageStartTime),
			"attempt":            fmt.Sprintf("%d", p.Attempt),
		},
		Android: &messaging.AndroidConfig{Priority: "high"},
	}
	return t.send(ctx, message)
}

// SendText sends the old-token migration notice (SPEC_FULL §5.2) as a
// data message; the client renders its own local notification.
func (t *Transport) SendText(ctx context.Context, device calldevice.Device, p dispatch.TextPayload) (dispatch.Outcome, error) {
	message := &messaging.Message{
		Token: device.PushToken,
		Data:  map[string]string{"type": p.Type, "message": p.Message},
	}
	return t.send(ctx, message)
}

func (t *Transport) send(ctx context.Context, message *messaging.Message) (dispatch.Outcome, error) {
	_, err := t.client.Send(ctx, message)
	if err == nil {
		return dispatch.Delivered, nil
	}

	switch {
	case messaging.IsUnregistered(err):
		return dispatch.InvalidToken, err
	case messaging.IsSenderIDMismatch(err), messaging.IsThirdPartyAuthError(err):
		return dispatch.AuthFail, err
	case messaging.IsUnavailable(err), messaging.IsInternal(err), messaging.IsQuotaExceeded(err):
		return dispatch.Transient, err
	default:
		return dispatch.Transient, err
	}
}

// Release is a no-op; the Firebase Messaging client holds no
// per-dispatcher resources that need explicit teardown.
func (t *Transport) Release() error { return nil }
