//go:build integration

package chromedebugger_test

import (
	"context"
	"testing"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/cdprelay/cdprelay/internal/extension/chromedebugger"
	"github.com/cdprelay/cdprelay/internal/extension/extensiontest"
)

// TestChromeDebuggerSatisfiesContract drives a real headless Chromium
// tab through the same conformance check fakedebugger runs by default.
// Requires a Chromium/Chrome binary on PATH; run with -tags=integration.
func TestChromeDebuggerSatisfiesContract(t *testing.T) {
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancel()

	bootCtx, bootCancel := chromedp.NewContext(allocCtx)
	defer bootCancel()

	var tabID target.ID
	if err := chromedp.Run(bootCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		tabID = chromedp.FromContext(ctx).Target.TargetID
		return nil
	})); err != nil {
		t.Fatalf("boot tab: %v", err)
	}

	nd := chromedebugger.New(allocCtx)
	extensiontest.VerifyContract(t, nd, string(tabID))
}
