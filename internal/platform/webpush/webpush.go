// --- File: internal/platform/webpush/webpush.go ---
// Package webpush implements dispatch.Transport for browser and PWA
// soft-phones registered through the Web Push API (SPEC_FULL §5.3). A
// device's PushToken holds its webpush.Subscription JSON-encoded, since
// a browser subscription is an endpoint URL plus a key pair rather than
// a single opaque token.
package webpush

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	webpushgo "github.com/SherClockHolmes/webpush-go"

	"github.com/tinywideclouds/callwake-middleware/internal/dispatch"
	"github.com/tinywideclouds/callwake-middleware/pkg/calldevice"
)

// Subscription is the JSON shape expected in calldevice.Device.PushToken
// for PlatformWebPush devices.
type Subscription struct {
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

// Config holds the VAPID credentials used to sign push requests.
type Config struct {
	PrivateKey      string
	PublicKey       string
	SubscriberEmail string
}

// Transport dispatches to browser push endpoints via VAPID-signed
// requests.
type Transport struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewTransport wires a webpush Transport.
func NewTransport(cfg Config, logger *slog.Logger) *Transport {
	return &Transport{cfg: cfg, httpClient: &http.Client{}, logger: logger.With("component", "WebPushTransport")}
}

// SendCall sends the call wakeup payload as the push message body; the
// service worker on the receiving end is responsible for surfacing it.
func (t *Transport) SendCall(ctx context.Context, device calldevice.Device, p dispatch.CallPayload) (dispatch.Outcome, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return dispatch.Transient, fmt.Errorf("webpush: marshal payload: %w", err)
	}
	return t.send(device, body)
}

// SendText sends the old-token migration notice.
func (t *Transport) SendText(ctx context.Context, device calldevice.Device, p dispatch.TextPayload) (dispatch.Outcome, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return dispatch.Transient, fmt.Errorf("webpush: marshal payload: %w", err)
	}
	return t.send(device, body)
}

func (t *Transport) send(device calldevice.Device, body []byte) (dispatch.Outcome, error) {
	var sub Subscription
	if err := json.Unmarshal([]byte(device.PushToken), &sub); err != nil {
		return dispatch.InvalidToken, fmt.Errorf("webpush: malformed subscription: %w", err)
	}

	resp, err := webpushgo.SendNotification(body, &webpushgo.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpushgo.Keys{P256dh: sub.P256dh, Auth: sub.Auth},
	}, &webpushgo.Options{
		Subscriber:      t.cfg.SubscriberEmail,
		VAPIDPublicKey:  t.cfg.PublicKey,
		VAPIDPrivateKey: t.cfg.PrivateKey,
		TTL:             60,
		HTTPClient:      t.httpClient,
	})
	if err != nil {
		return dispatch.Transient, fmt.Errorf("webpush: transport: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case 201:
		return dispatch.Delivered, nil
	case 410, 404:
		return dispatch.InvalidToken, fmt.Errorf("webpush: subscription gone (status %d)", resp.StatusCode)
	case 401, 403:
		return dispatch.AuthFail, fmt.Errorf("webpush: vapid rejected (status %d)", resp.StatusCode)
	default:
		return dispatch.Transient, fmt.Errorf("webpush: unexpected status %d", resp.StatusCode)
	}
}

// Release is a no-op; the underlying http.Client pools its own
// connections.
func (t *Transport) Release() error { return nil }
