// --- File: internal/httpapi/incomingcall.go ---
// Package httpapi exposes the three inbound HTTP endpoints described in
// spec.md §6, wired the way the teacher wires internal/api/token_api.go:
// a thin handler that decodes the form body, validates it, and delegates
// to the owning component. Because this is an open API (spec.md §7: "the
// external surface is intentionally opaque to third parties"), validation
// failures never explain what was wrong, only that the request was bad.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tinywideclouds/callwake-middleware/internal/coordinator"
)

// incomingCallCoordinator is the subset of *coordinator.Coordinator this
// handler needs, so tests can substitute a fake.
type incomingCallCoordinator interface {
	HandleIncomingCall(ctx context.Context, sipUserID, phonenumber, callerID, callID string) coordinator.CallAttempt
}

// IncomingCallHandler serves POST /incoming-call.
type IncomingCallHandler struct {
	coordinator incomingCallCoordinator
	logger      *slog.Logger
}

// NewIncomingCallHandler wires the handler.
func NewIncomingCallHandler(c incomingCallCoordinator, logger *slog.Logger) *IncomingCallHandler {
	return &IncomingCallHandler{coordinator: c, logger: logger.With("component", "IncomingCallHandler")}
}

// ServeHTTP validates sip_user_id/phonenumber/caller_id/call_id, runs the
// Coordinator's full rendezvous, and writes the plain-text status=ACK or
// status=NAK body spec.md §6 requires.
func (h *IncomingCallHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeBadRequest(w)
		return
	}

	sipUserID, ok := validateSipUserID(r.Form.Get("sip_user_id"))
	if !ok {
		writeBadRequest(w)
		return
	}

	phonenumber := r.Form.Get("phonenumber")
	if !validatePhonenumber(phonenumber) {
		writeBadRequest(w)
		return
	}

	callID := r.Form.Get("call_id")
	if callID != "" && !validUniqueKey(callID) {
		writeBadRequest(w)
		return
	}

	callerID := r.Form.Get("caller_id")

	attempt := h.coordinator.HandleIncomingCall(r.Context(), sipUserID, phonenumber, callerID, callID)

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	switch attempt.Verdict {
	case coordinator.VerdictAvailable:
		w.Write([]byte("status=ACK"))
	default:
		w.Write([]byte("status=NAK"))
	}
}
