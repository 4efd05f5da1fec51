// --- File: internal/platform/gcmlegacy/gcmlegacy.go ---
// Package gcmlegacy implements dispatch.Transport for devices still
// registered under the deprecated GCM HTTP JSON protocol (SPEC_FULL §5.4).
// No ecosystem Go SDK exists for this retired protocol, so this package
// talks to it directly over net/http rather than through a library.
package gcmlegacy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tinywideclouds/callwake-middleware/internal/dispatch"
	"github.com/tinywideclouds/callwake-middleware/pkg/calldevice"
)

const sendEndpoint = "https://android.googleapis.com/gcm/send"

type gcmMessage struct {
	To   string            `json:"to"`
	Data map[string]string `json:"data"`
}

type gcmResult struct {
	MessageID      string `json:"message_id"`
	Error          string `json:"error"`
	RegistrationID string `json:"registration_id"`
}

type gcmResponse struct {
	Success int         `json:"success"`
	Failure int         `json:"failure"`
	Results []gcmResult `json:"results"`
}

// Transport dispatches to the legacy GCM send endpoint using a
// server-key-authenticated HTTP POST.
type Transport struct {
	httpClient *http.Client
	serverKey  string
	endpoint   string
	logger     *slog.Logger
}

// NewTransport builds a legacy GCM transport. httpClient may be nil to
// use http.DefaultClient.
func NewTransport(httpClient *http.Client, serverKey string, logger *slog.Logger) *Transport {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Transport{
		httpClient: httpClient,
		serverKey:  serverKey,
		endpoint:   sendEndpoint,
		logger:     logger.With("component", "GCMLegacyTransport"),
	}
}

// SendCall sends the call wakeup payload as a data message.
func (t *Transport) SendCall(ctx context.Context, device calldevice.Device, p dispatch.CallPayload) (dispatch.Outcome, error) {
	return t.send(ctx, device.PushToken, map[string]string{
		"type":               p.Type,
		"unique_key":         p.UniqueKey,
		"phonenumber":        p.Phonenumber,
		"caller_id":          p.CallerID,
		"response_api_url":   p.ResponseAPIURL,
		"message_start_time": fmt.Sprintf("%f", p.MessageStartTime),
		"attempt":            fmt.Sprintf("%d", p.Attempt),
	})
}

// SendText sends the old-token migration notice.
func (t *Transport) SendText(ctx context.Context, device calldevice.Device, p dispatch.TextPayload) (dispatch.Outcome, error) {
	return t.send(ctx, device.PushToken, map[string]string{"type": p.Type, "message": p.Message})
}

func (t *Transport) send(ctx context.Context, token string, data map[string]string) (dispatch.Outcome, error) {
	body, err := json.Marshal(gcmMessage{To: token, Data: data})
	if err != nil {
		return dispatch.Transient, fmt.Errorf("gcmlegacy: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return dispatch.Transient, fmt.Errorf("gcmlegacy: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+t.serverKey)

	res, err := t.httpClient.Do(req)
	if err != nil {
		return dispatch.Transient, fmt.Errorf("gcmlegacy: transport: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusUnauthorized:
		return dispatch.AuthFail, fmt.Errorf("gcmlegacy: unauthorized (server key rejected)")
	case http.StatusBadRequest:
		return dispatch.InvalidToken, fmt.Errorf("gcmlegacy: malformed request")
	}
	if res.StatusCode >= 500 {
		return dispatch.Transient, fmt.Errorf("gcmlegacy: server error %d", res.StatusCode)
	}
	if res.StatusCode != http.StatusOK {
		return dispatch.Transient, fmt.Errorf("gcmlegacy: unexpected status %d", res.StatusCode)
	}

	var parsed gcmResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return dispatch.Transient, fmt.Errorf("gcmlegacy: decode response: %w", err)
	}
	if len(parsed.Results) == 0 {
		return dispatch.Transient, fmt.Errorf("gcmlegacy: empty result set")
	}

	result := parsed.Results[0]
	if result.Error == "" {
		return dispatch.Delivered, nil
	}

	switch result.Error {
	case "NotRegistered", "InvalidRegistration", "MismatchSenderId":
		return dispatch.InvalidToken, fmt.Errorf("gcmlegacy: %s", result.Error)
	case "Unavailable", "InternalServerError", "DeviceMessageRateExceeded":
		return dispatch.Transient, fmt.Errorf("gcmlegacy: %s", result.Error)
	default:
		return dispatch.Transient, fmt.Errorf("gcmlegacy: %s", result.Error)
	}
}

// Release is a no-op; http.Client pools its own connections.
func (t *Transport) Release() error { return nil }
