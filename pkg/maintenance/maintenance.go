// Package maintenance implements the degraded-mode router mounted instead
// of the full API when API_MAINTENANCE_MODE is set, modeled directly on the
// teacher's small http.ServeMux-based api.NewHealthServer.
package maintenance

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// NewMux builds the maintenance router: /health, /version, and a catch-all
// 503 naming the version and asking the client to retry in 10 seconds.
func NewMux(version string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Ok"})
	})
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": version})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "10")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"message": fmt.Sprintf("down for maintenance %s", version),
		})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
