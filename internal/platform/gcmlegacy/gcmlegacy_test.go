// --- File: internal/platform/gcmlegacy/gcmlegacy_test.go ---
package gcmlegacy

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinywideclouds/callwake-middleware/internal/dispatch"
	"github.com/tinywideclouds/callwake-middleware/pkg/calldevice"
)

func newTestLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newServer(t *testing.T, status int, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key=server-key", r.Header.Get("Authorization"))
		var decoded map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&decoded))
		assert.Equal(t, "tok", decoded["to"])
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func newTransportFor(server *httptest.Server) *Transport {
	transport := NewTransport(server.Client(), "server-key", newTestLogger())
	transport.endpoint = server.URL
	return transport
}

func TestTransport_SendCall_Delivered(t *testing.T) {
	server := newServer(t, http.StatusOK, `{"success":1,"failure":0,"results":[{"message_id":"1"}]}`)
	defer server.Close()

	outcome, err := newTransportFor(server).SendCall(context.Background(), calldevice.Device{PushToken: "tok"}, dispatch.CallPayload{UniqueKey: "call-1"})
	require.NoError(t, err)
	assert.Equal(t, dispatch.Delivered, outcome)
}

func TestTransport_SendCall_NotRegisteredIsInvalidToken(t *testing.T) {
	server := newServer(t, http.StatusOK, `{"success":0,"failure":1,"results":[{"error":"NotRegistered"}]}`)
	defer server.Close()

	outcome, err := newTransportFor(server).SendCall(context.Background(), calldevice.Device{PushToken: "tok"}, dispatch.CallPayload{})
	require.Error(t, err)
	assert.Equal(t, dispatch.InvalidToken, outcome)
}

func TestTransport_SendCall_UnauthorizedIsAuthFail(t *testing.T) {
	server := newServer(t, http.StatusUnauthorized, "")
	defer server.Close()

	outcome, err := newTransportFor(server).SendCall(context.Background(), calldevice.Device{PushToken: "tok"}, dispatch.CallPayload{})
	require.Error(t, err)
	assert.Equal(t, dispatch.AuthFail, outcome)
}

func TestTransport_SendCall_ServerErrorIsTransient(t *testing.T) {
	server := newServer(t, http.StatusServiceUnavailable, "")
	defer server.Close()

	outcome, err := newTransportFor(server).SendCall(context.Background(), calldevice.Device{PushToken: "tok"}, dispatch.CallPayload{})
	require.Error(t, err)
	assert.Equal(t, dispatch.Transient, outcome)
}
