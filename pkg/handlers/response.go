package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/ekaya-inc/ekaya-logscope/pkg/engine"
)

// maxRequestBody bounds POST bodies; requests carry a query or a command, never data.
const maxRequestBody = 1 << 20

// ErrNotJSON is returned by DecodeJSON when the request is not application/json.
var ErrNotJSON = errors.New("content type must be application/json")

// LinesResponse carries the merged result of a group operation.
type LinesResponse struct {
	Lines []string      `json:"lines"`
	Count int           `json:"count"`
	Table *engine.Table `json:"table,omitempty"`
}

// NewLinesResponse wraps lines; nil becomes an empty array on the wire.
func NewLinesResponse(lines []string) LinesResponse {
	if lines == nil {
		lines = []string{}
	}
	return LinesResponse{Lines: lines, Count: len(lines)}
}

// DecodeJSON decodes the request body into dst. Browsers send form and
// text/plain POSTs cross-origin without a preflight, so anything not
// declared as application/json is refused with ErrNotJSON.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return ErrNotJSON
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}
