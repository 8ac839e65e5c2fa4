// Package relay implements the CDP relay core (C3), its endpoint
// surface (C4), and the pending-call table (C1) that correlates
// requests sent to the extension with their responses.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cdprelay/cdprelay/internal/events"
	"github.com/cdprelay/cdprelay/internal/logging"
)

// Launcher opens the user's browser at the extension's consent page so
// it can attach to the relay's extension endpoint (C7).
type Launcher interface {
	Launch(ctx context.Context, extensionURL string, clientInfo json.RawMessage) error
}

// connectedTabDescriptor is the {targetInfo, sessionId} pair the relay
// holds while an extension is attached to a tab (spec §3).
type connectedTabDescriptor struct {
	targetInfo json.RawMessage
	sessionID  string
}

// Relay is one relay instance: two endpoint paths, at most one client
// socket, at most one extension endpoint, and the state that couples
// them (spec §3, §4.3).
type Relay struct {
	cdpPath       string
	extensionPath string

	launcher  Launcher
	audit     *AuditLogger
	lifecycle *events.Bus
	baseWS    string // e.g. "ws://127.0.0.1:9223", set once via BindAddr

	maxFrameBytes int64
	upgrader      websocket.Upgrader

	mu sync.Mutex

	clientConn    *websocket.Conn
	clientWriteMu sync.Mutex

	extConn    *websocket.Conn
	extWriteMu sync.Mutex
	pending    *pendingTable

	connectedTab *connectedTabDescriptor
	tabCounter   int64
	epochCounter int64

	extensionGate *epochGate

	stopped bool
}

// Option configures a Relay at construction time.
type Option func(*Relay)

// WithLauncher sets the launch handoff collaborator (C7). Without one,
// EnsureExtensionForClient still waits for an extension to connect on
// its own, it just never tries to open a browser for the caller.
func WithLauncher(l Launcher) Option {
	return func(r *Relay) { r.launcher = l }
}

// WithAuditLogger sets the structured audit logger (C6).
func WithAuditLogger(a *AuditLogger) Option {
	return func(r *Relay) { r.audit = a }
}

// WithMaxFrameBytes bounds incoming WebSocket frame size (spec §6,
// suggested default 16 MiB).
func WithMaxFrameBytes(n int64) Option {
	return func(r *Relay) { r.maxFrameBytes = n }
}

// New constructs a Relay with freshly drawn, unguessable path suffixes
// (spec §4.4) and a lifecycle event bus (C10) that the reaper may
// subscribe to. Audit logging is off unless WithAuditLogger is given.
func New(opts ...Option) *Relay {
	id := uuid.NewString()
	r := &Relay{
		cdpPath:       "/cdp/" + id,
		extensionPath: "/extension/" + id,
		pending:       newPendingTable(),
		extensionGate: newEpochGate(),
		maxFrameBytes: 16 << 20,
		lifecycle:     events.NewBus(),
		upgrader:      websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BindAddr records the listener's scheme+host (e.g. "ws://127.0.0.1:9223")
// once the HTTP server has bound its address, so Endpoints can format
// URLs on demand from the actual listener rather than a string built at
// construction time (spec §9's reshaping note).
func (r *Relay) BindAddr(baseWS string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.baseWS = baseWS
}

// Endpoints returns the two capability URLs against the bound listener
// address (spec §4.4).
func (r *Relay) Endpoints() (clientURL, extensionURL string) {
	r.mu.Lock()
	base := r.baseWS
	r.mu.Unlock()
	return base + r.cdpPath, base + r.extensionPath
}

// Lifecycle returns the bus lifecycle transitions are published on
// (C10), for the reaper or diagnostics to subscribe to.
func (r *Relay) Lifecycle() *events.Bus {
	return r.lifecycle
}

// Router mounts the relay's WebSocket and diagnostic HTTP surface
// (C4) on a chi router.
func (r *Relay) Router() chi.Router {
	router := chi.NewRouter()
	router.Get("/healthz", r.handleHealthz)
	router.HandleFunc(r.cdpPath, r.handleClientWS)
	router.HandleFunc(r.extensionPath, r.handleExtensionWS)
	router.NotFound(r.handleUnknownPath)
	return router
}

// handleUnknownPath answers a WebSocket upgrade to any path other than
// the two derived ones with close code 4004 (spec §6, P7). Plain HTTP
// requests to an unknown path get an ordinary 404.
func (r *Relay) handleUnknownPath(w http.ResponseWriter, req *http.Request) {
	if !websocket.IsWebSocketUpgrade(req) {
		http.NotFound(w, req)
		return
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}
	closeWithCode(conn, 4004, "invalid path")
}

// EnsureExtensionForClient is the hook the external tool layer calls
// before opening its own upstream CDP connection (spec §4.3.5). If an
// extension is already bound it returns immediately; otherwise it
// invokes the launch handoff and waits for the extension connection
// promise to resolve.
func (r *Relay) EnsureExtensionForClient(ctx context.Context, clientInfo json.RawMessage) error {
	r.mu.Lock()
	bound := r.extConn != nil
	gate := r.extensionGate
	base := r.baseWS
	r.mu.Unlock()

	if bound {
		return nil
	}
	if r.launcher != nil {
		if err := r.launcher.Launch(ctx, base+r.extensionPath, clientInfo); err != nil {
			return fmt.Errorf("launch handoff: %w", err)
		}
	}
	return gate.wait(ctx)
}

// Stop closes both sockets with reason "server stopped" (spec
// §4.3.4). Re-arming the extension gate is not required after Stop.
func (r *Relay) Stop() {
	r.mu.Lock()
	r.stopped = true
	client := r.clientConn
	ext := r.extConn
	r.clientConn = nil
	r.extConn = nil
	r.mu.Unlock()

	if client != nil {
		closeWithReason(client, "server stopped")
	}
	if ext != nil {
		closeWithReason(ext, "server stopped")
	}
	r.pending.abort()
}

func (r *Relay) nextTabSessionID() string {
	n := atomic.AddInt64(&r.tabCounter, 1)
	return fmt.Sprintf("pw-tab-%d", n)
}

// publishLifecycle publishes a lifecycle transition (C10). Delivery is
// synchronous, so subscribers observe transitions in the order they
// actually happened.
func (r *Relay) publishLifecycle(kind events.LifecycleKind, detail string) {
	epoch := atomic.AddInt64(&r.epochCounter, 1)
	r.lifecycle.Publish(events.LifecycleEvent{
		Epoch:  epoch,
		Kind:   kind,
		Detail: detail,
	})
}

func closeWithReason(c *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	c.Close()
}

func closeWithCode(c *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	c.Close()
}

func logRelay(format string, args ...any) {
	logging.Debugf("relay: "+format, args...)
}
