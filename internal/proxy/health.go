package proxy

import "net/http"

// livenessHandler handles liveness probe requests.
// Always returns 200 OK to indicate the process is alive.
func livenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		writeJSON(r.Context(), w, map[string]string{"status": "alive"}, http.StatusOK)
	}
}

// readinessHandler handles readiness probe requests.
// Returns 200 OK while the server accepts streams, 503 during startup and shutdown.
func readinessHandler(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		if checker.IsReady() {
			writeJSON(r.Context(), w, map[string]string{"status": "ready"}, http.StatusOK)
		} else {
			writeJSON(r.Context(), w, map[string]string{"status": "unavailable"}, http.StatusServiceUnavailable)
		}
	}
}
