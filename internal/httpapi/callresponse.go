// --- File: internal/httpapi/callresponse.go ---
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/tinywideclouds/callwake-middleware/internal/intake"
)

// callResponseIntake is the subset of *intake.Intake this handler needs.
type callResponseIntake interface {
	RecordResponse(ctx context.Context, uniqueKey string, messageStartTime float64, available bool) error
}

// CallResponseHandler serves POST /call-response.
type CallResponseHandler struct {
	intake callResponseIntake
	logger *slog.Logger
}

// NewCallResponseHandler wires the handler.
func NewCallResponseHandler(i callResponseIntake, logger *slog.Logger) *CallResponseHandler {
	return &CallResponseHandler{intake: i, logger: logger.With("component", "CallResponseHandler")}
}

// ServeHTTP validates unique_key/message_start_time/available and
// delegates to Intake.RecordResponse, mapping its outcome to the 202/404
// contract of spec.md §6.
func (h *CallResponseHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeBadRequest(w)
		return
	}

	uniqueKey := r.Form.Get("unique_key")
	if !validUniqueKey(uniqueKey) {
		writeBadRequest(w)
		return
	}

	messageStartTime, err := strconv.ParseFloat(r.Form.Get("message_start_time"), 64)
	if err != nil {
		writeBadRequest(w)
		return
	}

	// available defaults to true when omitted, per spec.md §6.
	available := true
	if raw := r.Form.Get("available"); raw != "" {
		available, err = strconv.ParseBool(raw)
		if err != nil {
			writeBadRequest(w)
			return
		}
	}

	err = h.intake.RecordResponse(r.Context(), uniqueKey, messageStartTime, available)
	switch {
	case err == nil:
		writeAccepted(w)
	case errors.Is(err, intake.ErrUnknownCall), errors.Is(err, intake.ErrLateResponse):
		writeNotFound(w)
	default:
		h.logger.Error("Failed to record call response", "err", err, "unique_key", uniqueKey)
		writeNotFound(w)
	}
}
