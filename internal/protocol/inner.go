package protocol

import "encoding/json"

// Inner method names exchanged between the relay and the extension
// endpoint. Distinct from CDP's own method namespace.
const (
	MethodAttachToTab       = "attachToTab"
	MethodForwardCDPCommand = "forwardCDPCommand"
	MethodForwardCDPEvent   = "forwardCDPEvent"
	MethodDetachFromTab     = "detachFromTab"
	MethodDetachedFromTab   = "detachedFromTab"
)

// InnerEnvelope is the relay<->extension wire shape. It reuses the
// outer Envelope layout (id/method/params/result/error) but method
// values are drawn from the inner vocabulary above instead of CDP's.
type InnerEnvelope struct {
	ID     int             `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *InnerError     `json:"error,omitempty"`
}

// InnerError accepts both wire shapes the extension may send: a bare
// string, or an object with a message field. Exactly one of Text or
// Message is populated after unmarshalling.
type InnerError struct {
	Text    string
	Message string
}

// UnmarshalJSON accepts either a bare JSON string or {"message": "..."}.
func (e *InnerError) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		e.Text = s
		return nil
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	e.Message = obj.Message
	return nil
}

// MarshalJSON always emits the {"message": "..."} shape, per spec: the
// relay accepts both inner-error shapes on receipt but always sends
// the object form.
func (e *InnerError) MarshalJSON() ([]byte, error) {
	msg := e.Message
	if msg == "" {
		msg = e.Text
	}
	return json.Marshal(struct {
		Message string `json:"message"`
	}{Message: msg})
}

// String returns whichever of Text/Message was populated.
func (e *InnerError) String() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Text
}

// AttachToTabParams carries no fields; the tab is implicit in the
// extension endpoint's own identity.
type AttachToTabParams struct{}

// AttachToTabResult is the reply to an attachToTab inner request.
type AttachToTabResult struct {
	SessionID  string          `json:"sessionId"`
	TargetInfo json.RawMessage `json:"targetInfo"`
}

// ForwardCDPCommandParams is the inner request body for forwarding a
// client CDP command to the native debugger.
type ForwardCDPCommandParams struct {
	SessionID string          `json:"sessionId,omitempty"`
	Method    string          `json:"method"`
	Params    json.RawMessage `json:"params,omitempty"`
}

// ForwardCDPEventParams is the inner event body carrying a native
// debugger event back to the relay.
type ForwardCDPEventParams struct {
	SessionID string          `json:"sessionId,omitempty"`
	Method    string          `json:"method"`
	Params    json.RawMessage `json:"params,omitempty"`
}

// DetachedFromTabParams is the inner event body announcing a
// spontaneous native debugger detach.
type DetachedFromTabParams struct {
	TabID  string `json:"tabId"`
	Reason string `json:"reason"`
}

// InnerRequest builds an inner command envelope.
func InnerRequest(id int, method string, params any) *InnerEnvelope {
	return &InnerEnvelope{ID: id, Method: method, Params: mustMarshal(params)}
}

// InnerResult builds a successful inner reply envelope.
func InnerResult(id int, result any) *InnerEnvelope {
	return &InnerEnvelope{ID: id, Result: mustMarshal(result)}
}

// InnerErrorResult builds a failed inner reply envelope.
func InnerErrorResult(id int, message string) *InnerEnvelope {
	return &InnerEnvelope{ID: id, Error: &InnerError{Message: message}}
}

// InnerEvent builds an inner event envelope (no id).
func InnerEvent(method string, params any) *InnerEnvelope {
	return &InnerEnvelope{Method: method, Params: mustMarshal(params)}
}
