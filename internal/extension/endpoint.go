package extension

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cdprelay/cdprelay/internal/protocol"
)

// State is the extension endpoint's attachment state.
type State int

const (
	StateIdle       State = iota // constructed, socket open, debugger not attached
	StateAttaching               // attachToTab in flight
	StateAttached                // debugger attached, listeners live
	StateTerminated              // socket closed or Close called
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAttaching:
		return "attaching"
	case StateAttached:
		return "attached"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Sender writes one inner-protocol envelope to the relay. It is the
// endpoint's only outbound surface; handed in by whatever owns the
// WebSocket connection on the extension side.
type Sender interface {
	Send(env *protocol.InnerEnvelope) error
}

// Endpoint is the extension-side state machine (C2). It owns one tab
// identity, one NativeDebugger attachment, and reacts to inner-protocol
// requests by driving that debugger.
type Endpoint struct {
	debugger NativeDebugger
	sender   Sender
	tabID    string

	mu    sync.Mutex
	state State

	rootSessionID string

	stopEvents chan struct{}
}

// New builds an endpoint in StateIdle, bound to debugger and sender.
// tabID identifies the tab this endpoint will attach to on the next
// attachToTab request.
func New(debugger NativeDebugger, sender Sender, tabID string) *Endpoint {
	return &Endpoint{
		debugger: debugger,
		sender:   sender,
		tabID:    tabID,
		state:    StateIdle,
	}
}

// State reports the endpoint's current state.
func (e *Endpoint) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Start begins forwarding native-debugger events and detachments to the
// relay until ctx is cancelled or Close is called.
func (e *Endpoint) Start(ctx context.Context) {
	e.mu.Lock()
	e.stopEvents = make(chan struct{})
	stop := e.stopEvents
	e.mu.Unlock()

	go e.pump(ctx, stop)
}

func (e *Endpoint) pump(ctx context.Context, stop chan struct{}) {
	events := e.debugger.Events()
	detached := e.debugger.Detached()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case evt, ok := <-events:
			if !ok {
				continue
			}
			sessionID := evt.SessionID
			if sessionID == "" {
				sessionID = e.rootSession()
			}
			e.emit(protocol.InnerEvent(protocol.MethodForwardCDPEvent, protocol.ForwardCDPEventParams{
				SessionID: sessionID,
				Method:    evt.Method,
				Params:    evt.Params,
			}))
		case reason, ok := <-detached:
			if !ok {
				continue
			}
			e.mu.Lock()
			if e.state == StateAttached {
				e.state = StateIdle
			}
			e.mu.Unlock()
			e.emit(protocol.InnerEvent(protocol.MethodDetachedFromTab, protocol.DetachedFromTabParams{
				TabID:  reason.TabID,
				Reason: reason.Reason,
			}))
		}
	}
}

func (e *Endpoint) rootSession() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rootSessionID
}

func (e *Endpoint) emit(env *protocol.InnerEnvelope) {
	if err := e.sender.Send(env); err != nil {
		return
	}
}

// HandleRequest dispatches one inner-protocol request per the state
// table in spec §4.2, returning the reply envelope to send back.
func (e *Endpoint) HandleRequest(ctx context.Context, env *protocol.InnerEnvelope) *protocol.InnerEnvelope {
	switch env.Method {
	case protocol.MethodAttachToTab:
		return e.handleAttach(ctx, env.ID)
	case protocol.MethodForwardCDPCommand:
		return e.handleForward(ctx, env)
	case protocol.MethodDetachFromTab:
		return e.handleDetach(ctx, env.ID)
	default:
		return protocol.InnerErrorResult(env.ID, fmt.Sprintf("unknown method %q", env.Method))
	}
}

func (e *Endpoint) handleAttach(ctx context.Context, id int) *protocol.InnerEnvelope {
	e.mu.Lock()
	if e.state != StateIdle {
		state := e.state
		e.mu.Unlock()
		return protocol.InnerErrorResult(id, fmt.Sprintf("cannot attach from state %s", state))
	}
	e.state = StateAttaching
	rootSessionID := fmt.Sprintf("pw-tab-%s", e.tabID)
	e.mu.Unlock()

	targetInfo, err := e.debugger.Attach(ctx, e.tabID)
	if err != nil {
		e.mu.Lock()
		e.state = StateIdle
		e.mu.Unlock()
		return protocol.InnerErrorResult(id, err.Error())
	}

	e.mu.Lock()
	e.state = StateAttached
	e.rootSessionID = rootSessionID
	e.mu.Unlock()

	return protocol.InnerResult(id, protocol.AttachToTabResult{
		SessionID:  rootSessionID,
		TargetInfo: targetInfo,
	})
}

func (e *Endpoint) handleForward(ctx context.Context, env *protocol.InnerEnvelope) *protocol.InnerEnvelope {
	e.mu.Lock()
	if e.state != StateAttached {
		state := e.state
		e.mu.Unlock()
		return protocol.InnerErrorResult(env.ID, fmt.Sprintf("cannot forward from state %s", state))
	}
	rootSessionID := e.rootSessionID
	e.mu.Unlock()

	var params protocol.ForwardCDPCommandParams
	if err := json.Unmarshal(env.Params, &params); err != nil {
		return protocol.InnerErrorResult(env.ID, "malformed forwardCDPCommand params: "+err.Error())
	}

	sessionID := params.SessionID
	if sessionID == rootSessionID {
		sessionID = "" // debuggee level
	}

	result, err := e.debugger.SendCommand(ctx, sessionID, params.Method, params.Params)
	if err != nil {
		return protocol.InnerErrorResult(env.ID, err.Error())
	}
	return &protocol.InnerEnvelope{ID: env.ID, Result: result}
}

func (e *Endpoint) handleDetach(ctx context.Context, id int) *protocol.InnerEnvelope {
	if err := e.debugger.Detach(ctx); err != nil {
		return protocol.InnerErrorResult(id, err.Error())
	}

	e.mu.Lock()
	e.state = StateIdle
	e.mu.Unlock()

	return protocol.InnerResult(id, struct{}{})
}

// Close terminates the endpoint: stops the event pump, detaches the
// debugger ignoring errors, and marks the state Terminated.
func (e *Endpoint) Close(ctx context.Context) {
	e.mu.Lock()
	if e.state == StateTerminated {
		e.mu.Unlock()
		return
	}
	e.state = StateTerminated
	stop := e.stopEvents
	e.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	_ = e.debugger.Detach(ctx)
}
