// Package protocol defines the wire shapes the relay speaks: the outer
// CDP envelope exchanged with the upstream client, and the inner
// envelope exchanged with the extension endpoint.
package protocol

import "encoding/json"

// Envelope is the shape every frame on the client-facing path takes.
// A request carries ID and Method; a response carries ID and exactly
// one of Result/Error; an event carries Method and Params with no ID.
type Envelope struct {
	ID        int             `json:"id,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Method    string          `json:"method,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *Error          `json:"error,omitempty"`
}

// Error is the CDP error shape: a message and an optional code. The
// relay never preserves codes from the native debugger (spec §7), so
// Code is only ever populated for relay-synthesized errors that choose
// to set it.
type Error struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message"`
}

// IsRequest reports whether the envelope is an outbound command
// awaiting a reply (has an id and a method).
func (e *Envelope) IsRequest() bool {
	return e.ID != 0 && e.Method != ""
}

// IsResponse reports whether the envelope is a reply to a prior
// request (has an id and no method).
func (e *Envelope) IsResponse() bool {
	return e.ID != 0 && e.Method == ""
}

// IsEvent reports whether the envelope is an unsolicited notification
// (has a method and no id).
func (e *Envelope) IsEvent() bool {
	return e.ID == 0 && e.Method != ""
}

// Request builds a client-facing command envelope.
func Request(id int, sessionID, method string, params any) *Envelope {
	return &Envelope{ID: id, SessionID: sessionID, Method: method, Params: mustMarshal(params)}
}

// ResultResponse builds a successful reply envelope.
func ResultResponse(id int, sessionID string, result any) *Envelope {
	return &Envelope{ID: id, SessionID: sessionID, Result: mustMarshal(result)}
}

// ErrorResponse builds a failed reply envelope.
func ErrorResponse(id int, sessionID string, message string) *Envelope {
	return &Envelope{ID: id, SessionID: sessionID, Error: &Error{Message: message}}
}

// Event builds an unsolicited notification envelope.
func Event(sessionID, method string, params any) *Envelope {
	return &Envelope{SessionID: sessionID, Method: method, Params: mustMarshal(params)}
}

func mustMarshal(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return raw
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
