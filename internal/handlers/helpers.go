package handlers

import (
	"encoding/json"
	"net/http"
)

// RequireMethod enforces the HTTP method on a portfolio API endpoint and
// answers 405 on mismatch. GET endpoints also accept HEAD so probes and the
// dashboard's EventSource preflight work. Returns false when the response has
// already been written.
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method || (method == http.MethodGet && r.Method == http.MethodHead) {
		return true
	}
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	return false
}

// WriteJSON encodes data as the JSON response body with the given status code.
// Snapshots, metrics, and error envelopes all go through here so the content
// type stays consistent.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes the portal's error envelope: {"status":"error","error":...}.
// Handlers add extra fields (the divestment ceiling) by calling WriteJSON with
// an expanded map instead.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}
