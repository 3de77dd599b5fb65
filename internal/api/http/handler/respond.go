// Package handler implements the HTTP endpoints: remote attendance
// validation for scanning clients and session management for lecturers.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/Mid-D-Man/AirCode-sub002/internal/model"
)

// validationResponse is the wire shape scanning clients parse. The error
// field carries a machine-readable code, message is for display.
type validationResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeValidationError(w http.ResponseWriter, status int, code model.ErrorCode, message string) {
	writeJSON(w, status, validationResponse{
		Success: false,
		Error:   string(code),
		Message: message,
	})
}
