package config

import (
	"os"
	"testing"
)

func TestLoadFromBytesDefaults(t *testing.T) {
	c, err := LoadFromBytes([]byte(``))
	if err != nil {
		t.Fatalf("LoadFromBytes: %v", err)
	}
	if c.Host != "127.0.0.1" {
		t.Errorf("expected default host 127.0.0.1, got %q", c.Host)
	}
	if c.Port != 9223 {
		t.Errorf("expected default port 9223, got %d", c.Port)
	}
	if c.Browser.Channel != "chrome" {
		t.Errorf("expected default channel chrome, got %q", c.Browser.Channel)
	}
	if c.Limits.MaxFrameBytes != 16<<20 {
		t.Errorf("expected default max frame bytes 16MiB, got %d", c.Limits.MaxFrameBytes)
	}
	if !c.IsReaperEnabled() {
		t.Errorf("expected reaper enabled by default")
	}
	if c.ReaperInterval().Seconds() != 30 {
		t.Errorf("expected default reaper interval 30s, got %v", c.ReaperInterval())
	}
}

func TestLoadFromBytesOverridesAndEnvExpansion(t *testing.T) {
	os.Setenv("CDPRELAY_TEST_CHANNEL", "msedge")
	defer os.Unsetenv("CDPRELAY_TEST_CHANNEL")

	yaml := []byte(`
Host: 0.0.0.0
Port: 9999
Browser:
  Channel: ${CDPRELAY_TEST_CHANNEL}
Reaper:
  Enabled: "false"
  Interval: 5
`)
	c, err := LoadFromBytes(yaml)
	if err != nil {
		t.Fatalf("LoadFromBytes: %v", err)
	}
	if c.Host != "0.0.0.0" || c.Port != 9999 {
		t.Errorf("unexpected host/port: %+v", c)
	}
	if c.Browser.Channel != "msedge" {
		t.Errorf("expected env-expanded channel msedge, got %q", c.Browser.Channel)
	}
	if c.IsReaperEnabled() {
		t.Errorf("expected reaper disabled")
	}
	if c.Addr() != "0.0.0.0:9999" {
		t.Errorf("unexpected Addr(): %q", c.Addr())
	}
}

func TestParseBool(t *testing.T) {
	cases := []struct {
		in       string
		def      bool
		expected bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"yes", false, true},
		{"false", true, false},
		{"", true, true},
		{"", false, false},
		{"garbage", true, true},
	}
	for _, c := range cases {
		if got := parseBool(c.in, c.def); got != c.expected {
			t.Errorf("parseBool(%q, %v) = %v, want %v", c.in, c.def, got, c.expected)
		}
	}
}
