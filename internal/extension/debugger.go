// Package extension implements the extension endpoint (C2): the state
// machine that binds one WebSocket connection to one native-debugger
// attachment and translates inner-protocol messages into calls on a
// NativeDebugger.
package extension

import (
	"context"
	"encoding/json"
)

// TargetInfo is the (intentionally loose) CDP target description
// returned by Target.getTargetInfo, carried opaquely by the endpoint.
type TargetInfo = json.RawMessage

// DebuggerEvent is a single CDP event observed on the attached tab.
type DebuggerEvent struct {
	SessionID string
	Method    string
	Params    json.RawMessage
}

// DetachReason explains why the native debugger detached on its own
// (as opposed to a detachFromTab request).
type DetachReason struct {
	TabID  string
	Reason string
}

// NativeDebugger is the boundary between the extension endpoint state
// machine and whatever actually drives the browser tab. chromedebugger
// implements this against a real Chromium via chromedp/cdproto;
// fakedebugger implements it deterministically for tests.
type NativeDebugger interface {
	Attach(ctx context.Context, tabID string) (TargetInfo, error)
	Detach(ctx context.Context) error
	SendCommand(ctx context.Context, sessionID, method string, params json.RawMessage) (json.RawMessage, error)
	Events() <-chan DebuggerEvent
	Detached() <-chan DetachReason
}
