// --- File: internal/httpapi/hangupreason.go ---
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tinywideclouds/callwake-middleware/internal/metrics"
	"github.com/tinywideclouds/callwake-middleware/pkg/calldevice"
)

// HangupReasonHandler serves POST /hangup-reason (SPEC_FULL §5.1): a
// pure-logging endpoint with no feedback loop into the Coordinator,
// grounded on api/views.py having none either. Bearer authentication
// against the upstream identity service is applied by middleware
// wrapping this handler, not by the handler itself (spec.md §6).
type HangupReasonHandler struct {
	devices calldevice.Repository
	emitter metrics.Sink
	logger  *slog.Logger
}

// NewHangupReasonHandler wires the handler.
func NewHangupReasonHandler(devices calldevice.Repository, emitter metrics.Sink, logger *slog.Logger) *HangupReasonHandler {
	return &HangupReasonHandler{devices: devices, emitter: emitter, logger: logger.With("component", "HangupReasonHandler")}
}

// ServeHTTP looks up the device for logging/metrics purposes and records
// the reason; it never changes Coordinator or rendezvous state.
func (h *HangupReasonHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeBadRequest(w)
		return
	}

	sipUserID, ok := validateSipUserID(r.Form.Get("sip_user_id"))
	if !ok {
		writeBadRequest(w)
		return
	}
	uniqueKey := r.Form.Get("unique_key")
	reason := r.Form.Get("reason")

	device, err := h.devices.Get(r.Context(), sipUserID)
	if err != nil {
		if errors.Is(err, calldevice.ErrNotFound) {
			h.logger.Warn("Failed to find a device for hangup reason", "sip_user_id", sipUserID, "unique_key", uniqueKey)
			writeNotFound(w)
			return
		}
		h.logger.Error("Device lookup failed", "err", err, "sip_user_id", sipUserID)
		writeNotFound(w)
		return
	}

	h.logger.Info("Hangup reason", "unique_key", uniqueKey, "platform", device.Platform, "reason", reason)
	h.emitter.Emit(context.Background(), metrics.QueueHangupReasonTotal, map[string]string{"reason": reason, "platform": string(device.Platform)})

	w.WriteHeader(http.StatusOK)
}
