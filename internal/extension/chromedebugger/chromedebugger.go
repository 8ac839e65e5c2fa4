// Package chromedebugger implements extension.NativeDebugger against a
// real Chromium tab via chromedp and cdproto, the same two modules the
// teacher uses to drive tabs from its own agent tools.
package chromedebugger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/log"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/mailru/easyjson"

	"github.com/cdprelay/cdprelay/internal/extension"
)

// ChromeDebugger drives one tab of an already-running Chromium instance
// reachable through allocCtx (typically built with
// chromedp.NewRemoteAllocator against the browser's own DevTools port).
type ChromeDebugger struct {
	allocCtx context.Context

	mu       sync.Mutex
	tabCtx   context.Context
	cancel   context.CancelFunc
	attached bool

	events   chan extension.DebuggerEvent
	detached chan extension.DetachReason
}

// New builds a ChromeDebugger that will attach tabs discovered through
// allocCtx.
func New(allocCtx context.Context) *ChromeDebugger {
	return &ChromeDebugger{
		allocCtx: allocCtx,
		events:   make(chan extension.DebuggerEvent, 64),
		detached: make(chan extension.DetachReason, 1),
	}
}

// Attach binds to the tab identified by tabID and starts forwarding its
// CDP events onto Events().
func (d *ChromeDebugger) Attach(ctx context.Context, tabID string) (extension.TargetInfo, error) {
	d.mu.Lock()
	if d.attached {
		d.mu.Unlock()
		return nil, fmt.Errorf("already attached")
	}
	d.mu.Unlock()

	tabCtx, cancel := chromedp.NewContext(d.allocCtx, chromedp.WithTargetID(target.ID(tabID)))

	var info *target.Info
	err := chromedp.Run(tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var infoErr error
		info, infoErr = target.GetTargetInfo().Do(ctx)
		return infoErr
	}))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("get target info: %w", err)
	}

	chromedp.ListenTarget(tabCtx, func(ev any) {
		d.dispatchEvent(tabID, ev)
	})

	d.mu.Lock()
	d.tabCtx = tabCtx
	d.cancel = cancel
	d.attached = true
	d.mu.Unlock()

	raw, err := json.Marshal(info)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("marshal target info: %w", err)
	}
	return raw, nil
}

// Detach stops listening and releases the tab context.
func (d *ChromeDebugger) Detach(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.attached {
		return nil
	}
	d.attached = false
	if d.cancel != nil {
		d.cancel()
	}
	return nil
}

// SendCommand issues method with params against the tab, or against a
// flat-session child target when sessionID is non-empty.
func (d *ChromeDebugger) SendCommand(ctx context.Context, sessionID, method string, params json.RawMessage) (json.RawMessage, error) {
	d.mu.Lock()
	tabCtx := d.tabCtx
	attached := d.attached
	d.mu.Unlock()
	if !attached {
		return nil, fmt.Errorf("debugger not attached")
	}

	execCtx := tabCtx
	if sessionID != "" {
		execCtx = cdp.WithExecutor(tabCtx, target.Session(target.SessionID(sessionID)))
	}

	var result easyjson.RawMessage
	reqParams := easyjson.RawMessage(params)
	err := chromedp.Run(execCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		return cdp.Execute(ctx, method, &reqParams, &result)
	}))
	if err != nil {
		return nil, err
	}
	return json.RawMessage(result), nil
}

// Events returns the channel forwarded CDP events are delivered on.
func (d *ChromeDebugger) Events() <-chan extension.DebuggerEvent {
	return d.events
}

// Detached returns the channel for spontaneous tab detachments.
// ChromeDebugger itself never sends on it: a closed tab or browser
// process is not reported here.
func (d *ChromeDebugger) Detached() <-chan extension.DetachReason {
	return d.detached
}

// dispatchEvent converts a subset of cdproto's typed events back into
// the relay's {sessionId, method, params} shape. chromedp hands us
// concrete event types rather than raw frames, so this switch covers
// the domains the relay's test fixtures exercise; extending it to a
// new domain just means adding another case.
func (d *ChromeDebugger) dispatchEvent(tabID string, ev any) {
	method, params := methodAndParams(ev)
	if method == "" {
		return
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return
	}
	select {
	case d.events <- extension.DebuggerEvent{Method: method, Params: raw}:
	default:
	}
}

func methodAndParams(ev any) (string, any) {
	switch e := ev.(type) {
	case *target.EventAttachedToTarget:
		return "Target.attachedToTarget", e
	case *target.EventDetachedFromTarget:
		return "Target.detachedFromTarget", e
	case *target.EventTargetInfoChanged:
		return "Target.targetInfoChanged", e
	case *page.EventFrameNavigated:
		return "Page.frameNavigated", e
	case *page.EventJavascriptDialogOpening:
		return "Page.javascriptDialogOpening", e
	case *network.EventRequestWillBeSent:
		return "Network.requestWillBeSent", e
	case *network.EventResponseReceived:
		return "Network.responseReceived", e
	case *network.EventLoadingFinished:
		return "Network.loadingFinished", e
	case *runtime.EventConsoleAPICalled:
		return "Runtime.consoleAPICalled", e
	case *runtime.EventExceptionThrown:
		return "Runtime.exceptionThrown", e
	case *dom.EventDocumentUpdated:
		return "DOM.documentUpdated", e
	case *log.EventEntryAdded:
		return "Log.entryAdded", e
	default:
		return "", nil
	}
}
