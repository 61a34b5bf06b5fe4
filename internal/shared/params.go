package shared

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// QueryInt64 reads an optional integer query parameter. Absent means no
// filter; a malformed value is a validation error, never a silent
// no-filter broadening.
func QueryInt64(r *http.Request, name string) (*int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number", name)
	}
	return &n, nil
}

// RequireQueryInt64 reads a mandatory integer query parameter.
func RequireQueryInt64(r *http.Request, name string) (int64, error) {
	v, err := QueryInt64(r, name)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, fmt.Errorf("Missing %s", name)
	}
	return *v, nil
}
