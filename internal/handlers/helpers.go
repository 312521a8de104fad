package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ternarybob/bulkops/internal/common"
)

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 1 << 20

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteErrorWithFields(w, statusCode, message, nil)
}

// WriteErrorWithFields writes the standard error body plus extra fields.
// The status and error keys cannot be overridden.
func WriteErrorWithFields(w http.ResponseWriter, statusCode int, message string, fields map[string]interface{}) error {
	body := make(map[string]interface{}, len(fields)+2)
	for k, v := range fields {
		body[k] = v
	}
	body["status"] = "error"
	body["error"] = message
	return WriteJSON(w, statusCode, body)
}

// DecodeJSON reads a JSON body into dst and validates it.
// An empty body is accepted when allowEmpty is set.
func DecodeJSON(r *http.Request, dst interface{}, allowEmpty bool) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			return fmt.Errorf("invalid JSON body: %w", err)
		}
	}
	return common.ValidateStruct(dst)
}

// QueryInt parses an integer query parameter, returning def when absent
func QueryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return v, nil
}

// PathID returns the path segment that follows prefix, e.g. "/api/bulk/jobs/" on
// "/api/bulk/jobs/abc/cancel" gives "abc"
func PathID(path, prefix string) string {
	rest := strings.TrimPrefix(path, prefix)
	if rest == path {
		return ""
	}
	if i := strings.Index(rest, "/"); i >= 0 {
		rest = rest[:i]
	}
	return rest
}
