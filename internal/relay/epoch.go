package relay

import (
	"context"
	"sync"
)

// epochGate is a one-shot notification that is replaced, not reset, on
// each epoch. A waiter that captured the channel from a stale epoch
// never observes the new epoch's fire; it must call wait again after
// the epoch transition to pick up the fresh channel.
type epochGate struct {
	mu sync.Mutex
	ch chan struct{}
}

func newEpochGate() *epochGate {
	return &epochGate{ch: make(chan struct{})}
}

// wait blocks until fire is called for the gate's current epoch, the
// context is cancelled, or it was already fired when wait began.
func (g *epochGate) wait(ctx context.Context) error {
	g.mu.Lock()
	ch := g.ch
	g.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fire resolves every current waiter. Safe to call more than once;
// subsequent calls are no-ops until rearm.
func (g *epochGate) fire() {
	g.mu.Lock()
	defer g.mu.Unlock()
	select {
	case <-g.ch:
		// already fired
	default:
		close(g.ch)
	}
}

// rearm swaps in a fresh channel for the next epoch. Waiters blocked
// on the old channel are unaffected; they already returned when it was
// closed, or they belong to a prior epoch and should have stopped
// waiting on it.
func (g *epochGate) rearm() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ch = make(chan struct{})
}
