package common

import (
	"net/http"
	"strconv"
	"strings"
)

// QueryInt parses an integer query parameter. A missing parameter yields def
// with no error; a malformed one yields def and the parse error.
func QueryInt(r *http.Request, key string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def, err
	}
	return n, nil
}
