package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/platinummonkey/otpgate/pkg/phone"
)

// KeyFunc derives the limiter key for a request
type KeyFunc func(r *http.Request) string

// IPKey keys requests by client address
func IPKey(r *http.Request) string {
	return "ip:" + clientIP(r)
}

// PhoneKey keys requests by the normalized phone number in the JSON body
// (at most maxBody bytes are inspected) or the phone query parameter. The
// body is restored for the handler. Requests without a usable phone fall
// back to IPKey.
func PhoneKey(countryCode string, maxBody int64) KeyFunc {
	return func(r *http.Request) string {
		raw := phoneFromBody(r, maxBody)
		if raw == "" {
			raw = r.URL.Query().Get("phone")
		}
		if canonical := phone.Normalize(raw, countryCode); phone.IsValid(canonical) {
			return "phone:" + canonical
		}
		return IPKey(r)
	}
}

func phoneFromBody(r *http.Request, maxBody int64) string {
	if r.Body == nil || r.Body == http.NoBody || maxBody <= 0 {
		return ""
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	// put back what was read in front of whatever is left
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(data), r.Body), r.Body}
	if err != nil || len(data) == 0 {
		return ""
	}

	var payload struct {
		Phone json.RawMessage `json:"phone"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || len(payload.Phone) == 0 {
		return ""
	}

	// accept both "phone": "98765..." and "phone": 98765...
	var s string
	if err := json.Unmarshal(payload.Phone, &s); err == nil {
		return s
	}
	return string(payload.Phone)
}
