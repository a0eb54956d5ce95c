package httphandler

import (
	"encoding/json"
	"net/http"
	"time"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// Envelope is the uniform response body for dispatched endpoints.
// The timestamp is seconds since the epoch.
type Envelope struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// writeEnvelope writes the envelope. Responses carry request-specific
// state, so they are never cacheable.
func writeEnvelope(w http.ResponseWriter, status int, envelope Envelope) error {
	envelope.Timestamp = time.Now().Unix()
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(envelope)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) error {
	return writeEnvelope(w, status, Envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, status int, message string) error {
	return writeEnvelope(w, status, Envelope{
		Success: false,
		Error:   message,
	})
}
