package shared

import (
	"encoding/json"
	"net/http"
)

// WriteJSON serializes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes the success envelope, merging extra fields next to "ok".
func OK(w http.ResponseWriter, extra map[string]any) {
	body := map[string]any{"ok": true}
	for k, v := range extra {
		body[k] = v
	}
	WriteJSON(w, http.StatusOK, body)
}

// Fail writes the error envelope {ok:false, error:...}.
func Fail(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]any{"ok": false, "error": message})
}

// DecodeJSON reads the request body into dst. Type mismatches (a string
// where an integer is expected, a number where a boolean is expected) are
// decode errors, surfaced to the caller as validation failures.
func DecodeJSON(r *http.Request, dst any) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(r.Body).Decode(dst)
}
