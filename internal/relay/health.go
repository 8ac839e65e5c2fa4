package relay

import (
	"encoding/json"
	"net/http"
)

// handleHealthz reports connection state for operators. Diagnostic
// only; never consulted by the protocol state machine (SPEC_FULL §6).
func (r *Relay) handleHealthz(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	clientConnected := r.clientConn != nil
	extensionConnected := r.extConn != nil
	r.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":             "ok",
		"clientConnected":    clientConnected,
		"extensionConnected": extensionConnected,
	})
}
