package extension_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/cdprelay/cdprelay/internal/extension"
	"github.com/cdprelay/cdprelay/internal/extension/fakedebugger"
	"github.com/cdprelay/cdprelay/internal/protocol"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []*protocol.InnerEnvelope
}

func (s *recordingSender) Send(env *protocol.InnerEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, env)
	return nil
}

func (s *recordingSender) snapshot() []*protocol.InnerEnvelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*protocol.InnerEnvelope, len(s.sent))
	copy(out, s.sent)
	return out
}

func TestAttachToTabSucceeds(t *testing.T) {
	fd := fakedebugger.New()
	sender := &recordingSender{}
	ep := extension.New(fd, sender, "tab-1")

	reply := ep.HandleRequest(context.Background(), protocol.InnerRequest(1, protocol.MethodAttachToTab, protocol.AttachToTabParams{}))
	if reply.Error != nil {
		t.Fatalf("unexpected error: %v", reply.Error)
	}
	var result protocol.AttachToTabResult
	if err := json.Unmarshal(reply.Result, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if result.SessionID != "pw-tab-tab-1" {
		t.Fatalf("sessionId = %q, want pw-tab-tab-1", result.SessionID)
	}
	if ep.State() != extension.StateAttached {
		t.Fatalf("state = %v, want Attached", ep.State())
	}
}

func TestAttachToTabFailurePropagatesAndStaysIdle(t *testing.T) {
	fd := fakedebugger.New()
	fd.AttachErr = errFake("boom")
	ep := extension.New(fd, &recordingSender{}, "tab-1")

	reply := ep.HandleRequest(context.Background(), protocol.InnerRequest(1, protocol.MethodAttachToTab, protocol.AttachToTabParams{}))
	if reply.Error == nil {
		t.Fatal("expected error")
	}
	if ep.State() != extension.StateIdle {
		t.Fatalf("state = %v, want Idle after failed attach", ep.State())
	}
}

func TestForwardBeforeAttachErrors(t *testing.T) {
	ep := extension.New(fakedebugger.New(), &recordingSender{}, "tab-1")
	params, _ := json.Marshal(protocol.ForwardCDPCommandParams{Method: "Page.navigate"})
	reply := ep.HandleRequest(context.Background(), &protocol.InnerEnvelope{ID: 2, Method: protocol.MethodForwardCDPCommand, Params: params})
	if reply.Error == nil {
		t.Fatal("expected error forwarding before attach")
	}
}

func TestForwardRootSessionClearsSessionID(t *testing.T) {
	fd := fakedebugger.New()
	ep := extension.New(fd, &recordingSender{}, "tab-1")
	ep.HandleRequest(context.Background(), protocol.InnerRequest(1, protocol.MethodAttachToTab, protocol.AttachToTabParams{}))

	params, _ := json.Marshal(protocol.ForwardCDPCommandParams{SessionID: "pw-tab-tab-1", Method: "Page.navigate"})
	reply := ep.HandleRequest(context.Background(), &protocol.InnerEnvelope{ID: 2, Method: protocol.MethodForwardCDPCommand, Params: params})
	if reply.Error != nil {
		t.Fatalf("unexpected error: %v", reply.Error)
	}
	calls := fd.Calls()
	if len(calls) != 1 || calls[0].SessionID != "" {
		t.Fatalf("expected flat debuggee-level call, got %+v", calls)
	}
}

func TestForwardChildSessionPassesThrough(t *testing.T) {
	fd := fakedebugger.New()
	ep := extension.New(fd, &recordingSender{}, "tab-1")
	ep.HandleRequest(context.Background(), protocol.InnerRequest(1, protocol.MethodAttachToTab, protocol.AttachToTabParams{}))

	params, _ := json.Marshal(protocol.ForwardCDPCommandParams{SessionID: "child-session", Method: "Runtime.evaluate"})
	ep.HandleRequest(context.Background(), &protocol.InnerEnvelope{ID: 2, Method: protocol.MethodForwardCDPCommand, Params: params})

	calls := fd.Calls()
	if len(calls) != 1 || calls[0].SessionID != "child-session" {
		t.Fatalf("expected child session to pass through, got %+v", calls)
	}
}

func TestDetachFromTabReturnsToIdle(t *testing.T) {
	fd := fakedebugger.New()
	ep := extension.New(fd, &recordingSender{}, "tab-1")
	ep.HandleRequest(context.Background(), protocol.InnerRequest(1, protocol.MethodAttachToTab, protocol.AttachToTabParams{}))

	reply := ep.HandleRequest(context.Background(), protocol.InnerRequest(2, protocol.MethodDetachFromTab, nil))
	if reply.Error != nil {
		t.Fatalf("unexpected error: %v", reply.Error)
	}
	if ep.State() != extension.StateIdle {
		t.Fatalf("state = %v, want Idle", ep.State())
	}
}

func TestSpontaneousDetachEmitsDetachedFromTab(t *testing.T) {
	fd := fakedebugger.New()
	sender := &recordingSender{}
	ep := extension.New(fd, sender, "tab-1")
	ep.HandleRequest(context.Background(), protocol.InnerRequest(1, protocol.MethodAttachToTab, protocol.AttachToTabParams{}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ep.Start(ctx)

	fd.PushDetach(extension.DetachReason{TabID: "tab-1", Reason: "target closed"})

	var sent []*protocol.InnerEnvelope
	deadline := time.After(time.Second)
	for {
		sent = sender.snapshot()
		if len(sent) > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for detachedFromTab")
		case <-time.After(time.Millisecond):
		}
	}

	if len(sent) != 1 || sent[0].Method != protocol.MethodDetachedFromTab {
		t.Fatalf("expected a single detachedFromTab event, got %+v", sent)
	}
	if ep.State() != extension.StateIdle {
		t.Fatalf("state = %v, want Idle after spontaneous detach", ep.State())
	}
}

type errFake string

func (e errFake) Error() string { return string(e) }
