package httpx

import "net/http"

// healthHandler answers readiness and liveness probes. It deliberately
// avoids touching the database so a degraded dependency does not take the
// process out of rotation.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
