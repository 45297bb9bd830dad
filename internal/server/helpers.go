package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rendis/flowcanvas/pkg/schema"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeFlowError maps a FlowError code to an HTTP status and writes the
// structured error body. Non-FlowError values fall through as 500s.
func writeFlowError(w http.ResponseWriter, err error) {
	var fe *schema.FlowError
	if !errors.As(err, &fe) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := http.StatusInternalServerError
	switch fe.Code {
	case schema.ErrCodeValidation:
		status = http.StatusBadRequest
	case schema.ErrCodeNotFound:
		status = http.StatusNotFound
	case schema.ErrCodeConflict:
		status = http.StatusConflict
	}

	body := map[string]any{"error": fe.Message, "code": fe.Code}
	if len(fe.Details) > 0 {
		body["details"] = fe.Details
	}
	writeJSON(w, status, body)
}
