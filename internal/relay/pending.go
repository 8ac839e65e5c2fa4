package relay

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/cdprelay/cdprelay/internal/protocol"
)

// errTransportClosed is the single sentinel every pending call is
// rejected with when the extension transport closes or errors,
// regardless of which specific condition triggered the abort.
var errTransportClosed = errors.New("transport closed")

// errSocketNotOpen is returned by send when no extension socket is
// currently bound to the table.
var errSocketNotOpen = errors.New("unexpected socket state")

type pendingCall struct {
	method  string
	resolve chan json.RawMessage
	reject  chan error
}

// pendingTable correlates inner requests sent to the extension with
// their eventual inner responses (C1). One instance is owned by the
// relay core and rebound to a fresh write function each time a new
// extension endpoint attaches.
type pendingTable struct {
	mu      sync.Mutex
	entries map[int]*pendingCall
	nextID  int
	writeFn func(*protocol.InnerEnvelope) error
}

func newPendingTable() *pendingTable {
	return &pendingTable{entries: make(map[int]*pendingCall), nextID: 1}
}

// bind attaches the function used to write an inner request frame.
// Passing nil puts the table back into "unexpected socket state".
func (t *pendingTable) bind(writeFn func(*protocol.InnerEnvelope) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writeFn = writeFn
}

// send allocates an id, writes the inner request, and blocks until a
// matching deliver call resolves or rejects it, the context is
// cancelled, or abort fires.
func (t *pendingTable) send(ctx context.Context, method string, params any) (json.RawMessage, error) {
	t.mu.Lock()
	if t.writeFn == nil {
		t.mu.Unlock()
		return nil, errSocketNotOpen
	}
	id := t.nextID
	t.nextID++
	call := &pendingCall{
		method:  method,
		resolve: make(chan json.RawMessage, 1),
		reject:  make(chan error, 1),
	}
	t.entries[id] = call
	writeFn := t.writeFn
	t.mu.Unlock()

	if err := writeFn(protocol.InnerRequest(id, method, params)); err != nil {
		t.mu.Lock()
		delete(t.entries, id)
		t.mu.Unlock()
		return nil, err
	}

	select {
	case result := <-call.resolve:
		return result, nil
	case err := <-call.reject:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// deliver routes a response frame to its waiting caller. Returns false
// if the frame carried no id or the id is unknown (stale or already
// delivered), in which case the caller should log and drop it.
func (t *pendingTable) deliver(env *protocol.InnerEnvelope) bool {
	if env.ID == 0 {
		return false
	}
	t.mu.Lock()
	call, ok := t.entries[env.ID]
	if ok {
		delete(t.entries, env.ID)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	if env.Error != nil {
		call.reject <- errors.New(env.Error.String())
	} else {
		call.resolve <- env.Result
	}
	return true
}

// abort rejects every pending entry with errTransportClosed and
// unbinds the write function. Idempotent: calling it with nothing
// pending is a no-op.
func (t *pendingTable) abort() {
	t.mu.Lock()
	entries := t.entries
	t.entries = make(map[int]*pendingCall)
	t.writeFn = nil
	t.mu.Unlock()

	for _, call := range entries {
		call.reject <- errTransportClosed
	}
}
