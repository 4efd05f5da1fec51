// --- File: internal/httpapi/validation.go ---
package httpapi

import (
	"regexp"
	"strconv"
)

// sipUserID bounds mirror the original serializer's IntegerField(min=1e8,
// max=999999999) — a nine-digit integer (spec.md §6).
const (
	minSipUserID = 100_000_000
	maxSipUserID = 999_999_999
)

var phoneNumberJunk = regexp.MustCompile(`[+()\-\s x]`)

// validateSipUserID parses and range-checks sip_user_id.
func validateSipUserID(raw string) (string, bool) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return "", false
	}
	if n < minSipUserID || n > maxSipUserID {
		return "", false
	}
	return raw, true
}

// validatePhonenumber strips the allowed punctuation (+()-space x) and
// requires what remains to be all decimal digits, matching
// phone_number_validator in the original implementation.
func validatePhonenumber(raw string) bool {
	stripped := phoneNumberJunk.ReplaceAllString(raw, "")
	if stripped == "" {
		return false
	}
	for _, r := range stripped {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// validUniqueKey enforces the 255-char bound spec.md §6 places on
// unique_key/call_id.
func validUniqueKey(raw string) bool {
	return len(raw) > 0 && len(raw) <= 255
}
