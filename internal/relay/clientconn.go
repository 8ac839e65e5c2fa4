package relay

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/cdprelay/cdprelay/internal/events"
	"github.com/cdprelay/cdprelay/internal/protocol"
)

// handleClientWS accepts the upstream CDP client's WebSocket. A second
// connection takes ownership; the previous one is closed with
// "new connection established" (spec §4.3.1, P6).
func (r *Relay) handleClientWS(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}
	conn.SetReadLimit(r.maxFrameBytes)

	r.mu.Lock()
	old := r.clientConn
	r.clientConn = conn
	r.mu.Unlock()

	if old != nil {
		closeWithReason(old, "new connection established")
	}

	r.publishLifecycle(events.ClientAttached, "")
	r.clientReadLoop(conn)
}

func (r *Relay) clientReadLoop(conn *websocket.Conn) {
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if mt == websocket.BinaryMessage {
			closeWithReason(conn, "binary frames not supported")
			break
		}
		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			logRelay("malformed client frame: %v", err)
			closeWithReason(conn, "malformed frame")
			break
		}
		r.handleClientCommand(conn, &env)
	}
	r.onClientClosed(conn)
}

// onClientClosed implements the client-close half of lifecycle
// propagation (spec §4.3.4): closes the extension endpoint and
// re-arms the extension-connection gate for the next epoch. A no-op
// if this connection was already superseded by a newer one.
func (r *Relay) onClientClosed(conn *websocket.Conn) {
	r.mu.Lock()
	if r.clientConn != conn {
		r.mu.Unlock()
		return
	}
	r.clientConn = nil
	ext := r.extConn
	r.extConn = nil
	r.connectedTab = nil
	r.mu.Unlock()

	r.pending.abort()
	r.extensionGate.rearm()
	r.publishLifecycle(events.ClientDetached, "")

	if ext != nil {
		closeWithReason(ext, "client disconnected")
	}
}

// handleClientCommand implements the intercept table (spec §4.3.2):
// intercepted methods are answered locally; everything else forwards
// through the pending-call table to the extension.
func (r *Relay) handleClientCommand(conn *websocket.Conn, env *protocol.Envelope) {
	if !env.IsRequest() {
		logRelay("ignoring non-request client frame: %+v", env)
		return
	}
	if r.audit != nil {
		r.audit.LogCommand(env.Method, env.SessionID)
	}

	switch env.Method {
	case protocol.MethodBrowserGetVersion:
		r.replyResult(conn, env, protocol.DefaultBrowserVersion())
		return
	case protocol.MethodBrowserSetDownloadBehavior:
		r.replyResult(conn, env, struct{}{})
		return
	case protocol.MethodTargetGetTargetInfo:
		r.mu.Lock()
		var ti json.RawMessage
		if r.connectedTab != nil {
			ti = r.connectedTab.targetInfo
		}
		r.mu.Unlock()
		r.replyResult(conn, env, struct {
			TargetInfo json.RawMessage `json:"targetInfo,omitempty"`
		}{TargetInfo: ti})
		return
	case protocol.MethodTargetSetAutoAttach:
		if env.SessionID == "" {
			r.handleSetAutoAttachTopLevel(conn, env)
			return
		}
		// sessionId present: falls through to forwarding, reply only
		// after the forward completes.
	}

	r.forwardToExtension(conn, env)
}

// handleSetAutoAttachTopLevel implements the synthesis spelled out in
// spec §4.3.2 and ordered per §5: the synthesized
// Target.attachedToTarget event is sent to the client strictly before
// the reply to the originating command (P4).
func (r *Relay) handleSetAutoAttachTopLevel(conn *websocket.Conn, env *protocol.Envelope) {
	raw, err := r.pending.send(context.Background(), protocol.MethodAttachToTab, protocol.AttachToTabParams{})
	if err != nil {
		r.replyError(conn, env, err.Error())
		return
	}
	var result protocol.AttachToTabResult
	if err := json.Unmarshal(raw, &result); err != nil {
		r.replyError(conn, env, "malformed attach result")
		return
	}

	sessionID := r.nextTabSessionID()
	r.mu.Lock()
	r.connectedTab = &connectedTabDescriptor{targetInfo: result.TargetInfo, sessionID: sessionID}
	r.mu.Unlock()

	r.sendClientEvent(conn, protocol.MethodTargetAttachedToTarget, struct {
		SessionID          string          `json:"sessionId"`
		TargetInfo         json.RawMessage `json:"targetInfo"`
		WaitingForDebugger bool            `json:"waitingForDebugger"`
	}{
		SessionID:          sessionID,
		TargetInfo:         decorateAttached(result.TargetInfo),
		WaitingForDebugger: false,
	})
	r.replyResult(conn, env, struct{}{})
}

// forwardToExtension implements spec §4.3.2's forward branch,
// including the sessionId-clearing rule: a command whose sessionId
// equals the connected-tab descriptor's is cleared so the native
// debugger sees a top-level call (P2).
func (r *Relay) forwardToExtension(conn *websocket.Conn, env *protocol.Envelope) {
	sessionID := env.SessionID
	r.mu.Lock()
	if r.connectedTab != nil && sessionID == r.connectedTab.sessionID {
		sessionID = ""
	}
	r.mu.Unlock()

	raw, err := r.pending.send(context.Background(), protocol.MethodForwardCDPCommand, protocol.ForwardCDPCommandParams{
		SessionID: sessionID,
		Method:    env.Method,
		Params:    env.Params,
	})
	if err != nil {
		r.replyError(conn, env, err.Error())
		return
	}
	r.replyResultRaw(conn, env, raw)
}

func decorateAttached(targetInfo json.RawMessage) json.RawMessage {
	var m map[string]any
	if err := json.Unmarshal(targetInfo, &m); err != nil || m == nil {
		m = map[string]any{}
	}
	m["attached"] = true
	out, err := json.Marshal(m)
	if err != nil {
		return targetInfo
	}
	return out
}

func (r *Relay) replyResult(conn *websocket.Conn, env *protocol.Envelope, result any) {
	r.writeClient(conn, protocol.ResultResponse(env.ID, env.SessionID, result))
}

func (r *Relay) replyResultRaw(conn *websocket.Conn, env *protocol.Envelope, result json.RawMessage) {
	r.writeClient(conn, &protocol.Envelope{ID: env.ID, SessionID: env.SessionID, Result: result})
}

func (r *Relay) replyError(conn *websocket.Conn, env *protocol.Envelope, message string) {
	r.writeClient(conn, protocol.ErrorResponse(env.ID, env.SessionID, message))
}

func (r *Relay) sendClientEvent(conn *websocket.Conn, method string, params any) {
	r.writeClient(conn, protocol.Event("", method, params))
}

func (r *Relay) writeClient(conn *websocket.Conn, env *protocol.Envelope) {
	r.clientWriteMu.Lock()
	defer r.clientWriteMu.Unlock()
	if err := conn.WriteJSON(env); err != nil {
		logRelay("client write error: %v", err)
	}
}
