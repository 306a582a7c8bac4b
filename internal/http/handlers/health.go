package handlers

import (
	"net/http"
	"time"
)

// Health is the liveness probe.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"service":   "media-router",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
