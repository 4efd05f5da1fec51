// --- File: internal/platform/apns/apns.go ---
// Package apns implements dispatch.Transport for Apple push notifications,
// spanning both the modern token-based HTTP/2 API and the legacy
// certificate-based gateway selected per device (SPEC_FULL §3).
package apns

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"

	"github.com/tinywideclouds/callwake-middleware/internal/dispatch"
	"github.com/tinywideclouds/callwake-middleware/pkg/calldevice"
)

// pusher is the subset of *apns2.Client this package calls, so tests can
// substitute a fake.
type pusher interface {
	Push(n *apns2.Notification) (*apns2.Response, error)
}

// TokenConfig holds the credentials for the v2 token-based gateway.
type TokenConfig struct {
	KeyID        string
	TeamID       string
	BundleID     string
	P8KeyContent string
}

// CertConfig holds the credentials for the legacy certificate-based
// gateway, serving devices not listed in APNS2_DEVICES (SPEC_FULL §3).
type CertConfig struct {
	BundleID    string
	CertPEMPath string
	KeyPEMPath  string
}

// Transport dispatches to either the token-based or the cert-based
// gateway depending on whether the device's AppPushCredentialRef is
// opted into v2, and to the sandbox or production environment depending
// on device.Sandbox.
type Transport struct {
	v2BundleID       string
	v2Production     pusher
	v2Sandbox        pusher
	legacyBundleID   string
	legacyProduction pusher
	legacySandbox    pusher
	v2Devices        map[string]bool
	logger           *slog.Logger
}

// NewTransport builds an APNs Transport. v2Devices lists the
// AppPushCredentialRef values (APNS2_DEVICES) that should route through
// the token-based gateway; any device not listed falls back to the
// legacy certificate gateway if one was configured, or is rejected as an
// AuthFail if neither gateway applies.
func NewTransport(logger *slog.Logger, v2Devices []string) *Transport {
	set := make(map[string]bool, len(v2Devices))
	for _, ref := range v2Devices {
		set[ref] = true
	}
	return &Transport{v2Devices: set, logger: logger.With("component", "APNSTransport")}
}

// WithToken wires the v2 token-based gateway. It parses the P8 key
// immediately to fail fast on bad credentials.
func (t *Transport) WithToken(cfg TokenConfig) (*Transport, error) {
	authKey, err := token.AuthKeyFromBytes([]byte(cfg.P8KeyContent))
	if err != nil {
		return nil, fmt.Errorf("apns: parse p8 key: %w", err)
	}
	tok := &token.Token{AuthKey: authKey, KeyID: cfg.KeyID, TeamID: cfg.TeamID}

	t.v2BundleID = cfg.BundleID
	t.v2Production = apns2.NewTokenClient(tok).Production()
	t.v2Sandbox = apns2.NewTokenClient(tok).Development()
	return t, nil
}

// WithLegacyCert wires the certificate-based gateway.
func (t *Transport) WithLegacyCert(cfg CertConfig) (*Transport, error) {
	cert, err := apns2.LoadCertificate(cfg.CertPEMPath, cfg.KeyPEMPath)
	if err != nil {
		return nil, fmt.Errorf("apns: load legacy certificate: %w", err)
	}
	t.legacyBundleID = cfg.BundleID
	t.legacyProduction = apns2.NewClient(cert).Production()
	t.legacySandbox = apns2.NewClient(cert).Development()
	return t, nil
}

// SendCall pushes a call wakeup notification, alert-less per spec.md's
// silent-push requirement (carried entirely in custom data fields so the
// client can show its own incoming-call UI).
func (t *Transport) SendCall(ctx context.Context, device calldevice.Device, p dispatch.CallPayload) (dispatch.Outcome, error) {
	builder := payload.NewPayload().
		ContentAvailable().
		Custom("type", p.Type).
		Custom("unique_key", p.UniqueKey).
		Custom("phonenumber", p.Phonenumber).
		Custom("caller_id", p.CallerID).
		Custom("response_api_url", p.ResponseAPIURL).
		Custom("message_start_time", p.MessageStartTime).
		Custom("attempt", p.Attempt)

	return t.push(device, builder)
}

// SendText pushes the old-token migration notice (SPEC_FULL §5.2) as a
// visible alert.
func (t *Transport) SendText(ctx context.Context, device calldevice.Device, p dispatch.TextPayload) (dispatch.Outcome, error) {
	builder := payload.NewPayload().AlertBody(p.Message).Custom("type", p.Type)
	return t.push(device, builder)
}

func (t *Transport) push(device calldevice.Device, builder *payload.Payload) (dispatch.Outcome, error) {
	client, topic := t.gatewayFor(device)
	if client == nil {
		return dispatch.AuthFail, fmt.Errorf("apns: no gateway configured for credential ref %q", device.AppPushCredentialRef)
	}

	notification := &apns2.Notification{
		DeviceToken: device.PushToken,
		Topic:       topic,
		Payload:     builder,
		Priority:    apns2.PriorityHigh,
	}

	res, err := client.Push(notification)
	if err != nil {
		return dispatch.Transient, err
	}
	if res.Sent() {
		return dispatch.Delivered, nil
	}

	switch res.Reason {
	case apns2.ReasonBadDeviceToken, apns2.ReasonUnregistered, apns2.ReasonDeviceTokenNotForTopic:
		return dispatch.InvalidToken, fmt.Errorf("apns: %s", res.Reason)
	case apns2.ReasonMissingTopic, apns2.ReasonTopicDisallowed, apns2.ReasonBadCertificate, apns2.ReasonBadCertificateEnvironment:
		return dispatch.AuthFail, fmt.Errorf("apns: %s", res.Reason)
	default:
		return dispatch.Transient, fmt.Errorf("apns: %s (status %d)", res.Reason, res.StatusCode)
	}
}

func (t *Transport) gatewayFor(device calldevice.Device) (pusher, string) {
	if t.v2Devices[device.AppPushCredentialRef] {
		if device.Sandbox {
			return t.v2Sandbox, t.v2BundleID
		}
		return t.v2Production, t.v2BundleID
	}
	if device.Sandbox {
		return t.legacySandbox, t.legacyBundleID
	}
	return t.legacyProduction, t.legacyBundleID
}

// Release is a no-op; the apns2 HTTP/2 clients hold no resources that
// need explicit teardown.
func (t *Transport) Release() error { return nil }
