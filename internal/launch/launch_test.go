package launch

import (
	"context"
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"testing"
)

func TestFindOverrideMustExist(t *testing.T) {
	if _, err := Find(filepath.Join(t.TempDir(), "does-not-exist")); err == nil {
		t.Fatal("expected error for nonexistent override")
	}
}

func TestFindOverrideUsesGivenPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake-chrome")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	exe, err := Find(path)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if exe.Path != path || exe.Channel != ChannelCustom {
		t.Fatalf("exe = %+v, want path=%s channel=custom", exe, path)
	}
}

func TestConsentURLEncodesQueryParams(t *testing.T) {
	clientInfo, _ := json.Marshal(map[string]string{"name": "test-client"})
	raw, err := ConsentURL("ws://127.0.0.1:9223/extension/abc", clientInfo)
	if err != nil {
		t.Fatalf("ConsentURL: %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse consent url: %v", err)
	}
	if u.Scheme != "chrome-extension" || u.Host != ExtensionID || u.Path != "/connect.html" {
		t.Fatalf("unexpected url shape: %+v", u)
	}
	q := u.Query()
	if q.Get("mcpRelayUrl") != "ws://127.0.0.1:9223/extension/abc" {
		t.Fatalf("mcpRelayUrl = %q", q.Get("mcpRelayUrl"))
	}
	var got map[string]string
	if err := json.Unmarshal([]byte(q.Get("client")), &got); err != nil {
		t.Fatalf("unmarshal client param: %v", err)
	}
	if got["name"] != "test-client" {
		t.Fatalf("client param = %v", got)
	}
}

func TestHandoffLaunchFailsWhenOverrideMissing(t *testing.T) {
	h := &Handoff{BrowserOverride: filepath.Join(t.TempDir(), "missing")}
	err := h.Launch(context.Background(), "ws://127.0.0.1:9223/extension/abc", nil)
	if err == nil {
		t.Fatal("expected error when override binary is missing")
	}
}
