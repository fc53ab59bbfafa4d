package api

import (
	"encoding/json"
	"net/http"

	"github.com/myerscreative/flowdoors-tracking/internal/event"
)

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the standard error envelope.
type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// validationResponse carries the field-level failure list for rejected
// submissions.
type validationResponse struct {
	Error  string             `json:"error"`
	Fields []event.FieldError `json:"fields"`
}

func writeValidationError(w http.ResponseWriter, fields []event.FieldError) {
	writeJSON(w, http.StatusBadRequest, validationResponse{Error: "validation failed", Fields: fields})
}
