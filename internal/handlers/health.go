package handlers

import (
	"encoding/json"
	"net/http"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// HealthHandler returns API health status
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "ok",
		"message": "EventSub webhook receiver",
		"version": Version,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
