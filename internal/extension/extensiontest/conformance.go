// Package extensiontest holds a NativeDebugger conformance check shared
// between fakedebugger's own tests and chromedebugger's build-tagged
// integration test, so both implementations are held to one contract.
package extensiontest

import (
	"context"
	"testing"
	"time"

	"github.com/cdprelay/cdprelay/internal/extension"
)

// VerifyContract exercises the baseline NativeDebugger contract: attach,
// send a command, check the event/detach channels are present, detach.
func VerifyContract(t *testing.T, nd extension.NativeDebugger, tabID string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	info, err := nd.Attach(ctx, tabID)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if len(info) == 0 {
		t.Fatal("Attach returned empty TargetInfo")
	}

	if _, err := nd.SendCommand(ctx, "", "Page.enable", nil); err != nil {
		t.Fatalf("SendCommand: %v", err)
	}

	if nd.Events() == nil {
		t.Fatal("Events() returned nil channel")
	}
	if nd.Detached() == nil {
		t.Fatal("Detached() returned nil channel")
	}

	if err := nd.Detach(ctx); err != nil {
		t.Fatalf("Detach: %v", err)
	}
}
