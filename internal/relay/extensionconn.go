package relay

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/cdprelay/cdprelay/internal/events"
	"github.com/cdprelay/cdprelay/internal/protocol"
)

// handleExtensionWS accepts the extension-side WebSocket. Only one may
// be bound at a time (I1); a second connection is rejected outright
// (spec §4.3.1, P6).
func (r *Relay) handleExtensionWS(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	if r.extConn != nil {
		r.mu.Unlock()
		conn, err := r.upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		closeWithReason(conn, "another extension connection already established")
		return
	}
	r.mu.Unlock()

	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}
	conn.SetReadLimit(r.maxFrameBytes)

	r.mu.Lock()
	r.extConn = conn
	r.mu.Unlock()

	r.pending.bind(func(env *protocol.InnerEnvelope) error {
		r.extWriteMu.Lock()
		defer r.extWriteMu.Unlock()
		return conn.WriteJSON(env)
	})

	r.extensionGate.fire()
	r.publishLifecycle(events.ExtensionAttached, "")

	r.extensionReadLoop(conn)
}

func (r *Relay) extensionReadLoop(conn *websocket.Conn) {
	var lastErr error
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			lastErr = err
			break
		}
		if mt == websocket.BinaryMessage {
			lastErr = errors.New("binary frames not supported")
			closeWithReason(conn, "binary frames not supported")
			break
		}
		var env protocol.InnerEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			lastErr = err
			logRelay("malformed inner frame: %v", err)
			closeWithReason(conn, "malformed frame")
			break
		}
		r.handleExtensionMessage(&env)
	}
	r.onExtensionClosed(conn, lastErr)
}

// handleExtensionMessage dispatches inner responses to the pending-call
// table and inner events per spec §4.3.3.
func (r *Relay) handleExtensionMessage(env *protocol.InnerEnvelope) {
	if env.ID != 0 {
		if !r.pending.deliver(env) {
			logRelay("inner response for unknown id %d dropped", env.ID)
		}
		return
	}

	switch env.Method {
	case protocol.MethodForwardCDPEvent:
		var params protocol.ForwardCDPEventParams
		if err := json.Unmarshal(env.Params, &params); err != nil {
			logRelay("malformed forwardCDPEvent params: %v", err)
			return
		}
		sessionID := params.SessionID
		r.mu.Lock()
		if sessionID == "" && r.connectedTab != nil {
			sessionID = r.connectedTab.sessionID // I6 stamping rule
		}
		conn := r.clientConn
		r.mu.Unlock()
		if conn == nil {
			return
		}
		r.writeClient(conn, protocol.Event(sessionID, params.Method, params.Params))

	case protocol.MethodDetachedFromTab:
		// Clear the descriptor only; do not synthesize a client event
		// (spec §9, resolved ambiguity #3).
		r.mu.Lock()
		r.connectedTab = nil
		r.mu.Unlock()

	default:
		logRelay("unknown inner event method %q", env.Method)
	}
}

// onExtensionClosed implements the extension-close half of lifecycle
// propagation (spec §4.3.4): closes the client socket, clears the
// connected-tab descriptor, aborts pending calls, and re-arms the
// extension-connection gate. A no-op if this connection was already
// superseded (it never should be, since a second extension connection
// is rejected outright, but the check keeps the logic uniform with
// onClientClosed).
func (r *Relay) onExtensionClosed(conn *websocket.Conn, cause error) {
	r.mu.Lock()
	if r.extConn != conn {
		r.mu.Unlock()
		return
	}
	r.extConn = nil
	r.connectedTab = nil
	client := r.clientConn
	r.clientConn = nil
	r.mu.Unlock()

	r.pending.abort()
	r.extensionGate.rearm()
	r.publishLifecycle(events.ExtensionDetached, "")

	reason := "transport closed"
	if cause != nil {
		reason = cause.Error()
	}
	if client != nil {
		closeWithReason(client, "extension disconnected: "+reason)
	}
}
