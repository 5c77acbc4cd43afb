// internal/util/respond.go
// Helper JSON response untuk handler HTTP.

package util

import (
	"encoding/json"
	"net/http"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError renders {"error": code, "message": ..., "details"?: ...}.
func WriteError(w http.ResponseWriter, err error) {
	ae := AsAppError(err)
	body := map[string]any{
		"error":   ae.Code,
		"message": ae.Message,
	}
	if ae.Details != nil {
		body["details"] = ae.Details
	}
	WriteJSON(w, HTTPStatus(ae), body)
}
