package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/nodewarden/nodewarden/internal/rbac"
)

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondForbidden writes the structured 403 body every protected handler
// relies on. The message describes the shape of what is missing, never the
// caller's actual role assignments.
func respondForbidden(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusForbidden, map[string]string{
		"error":   "forbidden",
		"message": message,
	})
}

func permissionDeniedMessage(action rbac.Action, resource rbac.Resource, reason string) string {
	return fmt.Sprintf("Permission denied: %s %s on %s", action, resource, reason)
}

func getIPAddress(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
