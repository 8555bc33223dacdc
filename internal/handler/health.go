package handler

import (
	"net/http"
	"time"
)

// Health returns the GET /health handler. The gateway's liveness probe
// hits this; it deliberately skips the database so a degraded pool
// doesn't get the whole instance recycled while requests are still
// being served.
func Health(env string, port int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"environment": env,
			"port":        port,
		})
	}
}
