// --- File: internal/httpapi/errors.go ---
package httpapi

import "net/http"

// writeBadRequest writes the empty-body 400 spec.md §7 requires for
// BadRequest: "no detail — the external surface is intentionally opaque
// to third parties."
func writeBadRequest(w http.ResponseWriter) {
	w.WriteHeader(http.StatusBadRequest)
}

// writeNotFound writes the empty-body 404 used for both "no device" and
// "unknown/expired call" outcomes.
func writeNotFound(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNotFound)
}

// writeAccepted writes the empty-body 202 for a successfully recorded
// call response.
func writeAccepted(w http.ResponseWriter) {
	w.WriteHeader(http.StatusAccepted)
}
