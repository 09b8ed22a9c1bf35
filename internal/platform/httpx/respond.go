// Package httpx holds small HTTP response helpers shared by non-HTML endpoints.
package httpx

import (
	"encoding/json"
	"net/http"
)

// Health is the body served by the liveness endpoint.
type Health struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
