// Package services carries the pieces shared by the helper microservices:
// JSON request/response plumbing and the common health endpoint.
package services

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
)

// maxBodyBytes bounds request bodies; generated documents stay well under
// this.
const maxBodyBytes = 16 << 20

// Health returns the standard health handler for a named service.
func Health(service string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"service": service,
		})
	}
}

// WriteJSON encodes v to the response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("WARNING: services: encode response: %v", err)
	}
}

// WriteError sends a JSON error body.
func WriteError(w http.ResponseWriter, status int, format string, args ...any) {
	WriteJSON(w, status, map[string]string{"error": fmt.Sprintf(format, args...)})
}

// ReadJSON decodes the request body into v, enforcing the body limit.
func ReadJSON(r *http.Request, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

// PostOnly wraps a handler, rejecting non-POST methods.
func PostOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			WriteError(w, http.StatusMethodNotAllowed, "method %s not allowed", r.Method)
			return
		}
		h(w, r)
	}
}
