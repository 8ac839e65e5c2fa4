// Package fakedebugger provides a deterministic, no-browser NativeDebugger
// double for exercising the extension endpoint's state machine in tests.
package fakedebugger

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/cdprelay/cdprelay/internal/extension"
)

// FakeDebugger is a scriptable NativeDebugger. Tests set AttachErr /
// CommandResult / CommandErr before exercising the endpoint, and can
// push events or a detachment onto the channels directly.
type FakeDebugger struct {
	mu sync.Mutex

	AttachErr     error
	AttachResult  extension.TargetInfo
	DetachErr     error
	CommandErr    error
	CommandResult json.RawMessage

	attached bool
	calls    []Call

	events   chan extension.DebuggerEvent
	detached chan extension.DetachReason
}

// Call records one SendCommand invocation for assertions.
type Call struct {
	SessionID string
	Method    string
	Params    json.RawMessage
}

// New builds a FakeDebugger with buffered event/detach channels.
func New() *FakeDebugger {
	return &FakeDebugger{
		events:   make(chan extension.DebuggerEvent, 16),
		detached: make(chan extension.DetachReason, 1),
	}
}

func (f *FakeDebugger) Attach(ctx context.Context, tabID string) (extension.TargetInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.AttachErr != nil {
		return nil, f.AttachErr
	}
	f.attached = true
	if f.AttachResult == nil {
		f.AttachResult = json.RawMessage(`{"targetId":"` + tabID + `"}`)
	}
	return f.AttachResult, nil
}

func (f *FakeDebugger) Detach(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DetachErr != nil {
		return f.DetachErr
	}
	f.attached = false
	return nil
}

func (f *FakeDebugger) SendCommand(ctx context.Context, sessionID, method string, params json.RawMessage) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{SessionID: sessionID, Method: method, Params: params})
	if !f.attached {
		return nil, errors.New("not attached")
	}
	if f.CommandErr != nil {
		return nil, f.CommandErr
	}
	if f.CommandResult != nil {
		return f.CommandResult, nil
	}
	return json.RawMessage(`{}`), nil
}

func (f *FakeDebugger) Events() <-chan extension.DebuggerEvent {
	return f.events
}

func (f *FakeDebugger) Detached() <-chan extension.DetachReason {
	return f.detached
}

// Calls returns a snapshot of recorded SendCommand invocations.
func (f *FakeDebugger) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// PushEvent injects a debugger event as if it came from the tab.
func (f *FakeDebugger) PushEvent(evt extension.DebuggerEvent) {
	f.events <- evt
}

// PushDetach injects a spontaneous detachment.
func (f *FakeDebugger) PushDetach(reason extension.DetachReason) {
	f.detached <- reason
}
