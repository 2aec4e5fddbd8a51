package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health handles GET /health
func Health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": "down"})
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "up"})
	}
}
