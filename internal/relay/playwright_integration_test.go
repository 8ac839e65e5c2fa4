//go:build integration

package relay_test

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/playwright-community/playwright-go"

	"github.com/cdprelay/cdprelay/internal/protocol"
	"github.com/cdprelay/cdprelay/internal/relay"
)

// TestPlaywrightConnectsOverCDP drives the relay's client-facing path
// with a real upstream automation client (playwright-go's
// ConnectOverCDP) while a hand-rolled extension stub answers the inner
// protocol, exercising C3+C4 together end to end. Requires the
// Playwright driver/browsers to be installed; run with -tags=integration.
func TestPlaywrightConnectsOverCDP(t *testing.T) {
	r := relay.New()
	srv := httptest.NewServer(r.Router())
	defer srv.Close()
	r.BindAddr("ws" + strings.TrimPrefix(srv.URL, "http"))

	_, extURL := r.Endpoints()
	ext, _, err := websocket.DefaultDialer.Dial(extURL, nil)
	if err != nil {
		t.Fatalf("dial extension path: %v", err)
	}
	defer ext.Close()
	go runFakeExtension(t, ext)

	pw, err := playwright.Run()
	if err != nil {
		t.Fatalf("playwright.Run: %v", err)
	}
	defer pw.Stop()

	clientURL, _ := r.Endpoints()
	browser, err := pw.Chromium.ConnectOverCDP(clientURL)
	if err != nil {
		t.Fatalf("ConnectOverCDP: %v", err)
	}
	defer browser.Close()
}

// runFakeExtension answers every attachToTab with a fixed tab, and
// every forwardCDPCommand and detachFromTab with an empty result,
// standing in for a real browser extension.
func runFakeExtension(t *testing.T, conn *websocket.Conn) {
	for {
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var env protocol.InnerEnvelope
		if err := conn.ReadJSON(&env); err != nil {
			return
		}
		switch env.Method {
		case protocol.MethodAttachToTab:
			conn.WriteJSON(protocol.InnerResult(env.ID, protocol.AttachToTabResult{
				SessionID:  "pw-tab-1",
				TargetInfo: json.RawMessage(`{"targetId":"T","type":"page","title":"","url":"about:blank"}`),
			}))
		case protocol.MethodForwardCDPCommand:
			conn.WriteJSON(protocol.InnerResult(env.ID, struct{}{}))
		case protocol.MethodDetachFromTab:
			conn.WriteJSON(protocol.InnerResult(env.ID, struct{}{}))
		}
	}
}
