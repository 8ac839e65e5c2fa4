package relay

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cdprelay/cdprelay/internal/events"
)

// Reaper runs a periodic diagnostic sweep over a Relay: connection
// state and pending-call table depth (the epoch's age is not logged).
// It never closes a
// connection or mutates relay state; it only reads through the same
// accessors the relay core itself uses (SPEC_FULL §4.11).
type Reaper struct {
	relay  *Relay
	cron   *cron.Cron
	logger *slog.Logger
}

// NewReaper builds a reaper for relay. It is not scheduled until Start
// is called with the sweep interval.
func NewReaper(relay *Relay) *Reaper {
	return &Reaper{
		relay:  relay,
		cron:   cron.New(),
		logger: slog.Default().With("component", "cdp-relay-reaper"),
	}
}

// Start schedules the sweep to run every interval and begins the
// cron scheduler's own goroutine.
func (rp *Reaper) Start(interval time.Duration) error {
	_, err := rp.cron.AddFunc("@every "+interval.String(), rp.sweep)
	if err != nil {
		return err
	}
	rp.cron.Start()
	return nil
}

// Stop halts the scheduler, waiting for any in-flight sweep to finish.
func (rp *Reaper) Stop() {
	<-rp.cron.Stop().Done()
}

func (rp *Reaper) sweep() {
	rp.relay.mu.Lock()
	clientConnected := rp.relay.clientConn != nil
	extensionConnected := rp.relay.extConn != nil
	rp.relay.mu.Unlock()

	rp.relay.pending.mu.Lock()
	pendingDepth := len(rp.relay.pending.entries)
	rp.relay.pending.mu.Unlock()

	rp.logger.Info("reap_sweep",
		"client_connected", clientConnected,
		"extension_connected", extensionConnected,
		"pending_depth", pendingDepth,
	)
}

// SubscribeLifecycle wires the reaper to log every epoch transition
// as it happens, in addition to the periodic sweep (C10/C11).
func (rp *Reaper) SubscribeLifecycle() events.Subscription {
	return rp.relay.lifecycle.Subscribe(func(evt events.LifecycleEvent) {
		rp.logger.Info("lifecycle_transition", "epoch", evt.Epoch, "kind", string(evt.Kind), "detail", evt.Detail)
	})
}
