// Package config loads the relay's configuration: a YAML document with
// environment variable expansion, optionally preceded by a .env file,
// with live reload on write.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the relay's full configuration surface.
type Config struct {
	Host string `yaml:"Host"`
	Port int    `yaml:"Port"`

	Browser struct {
		Channel     string `yaml:"Channel"`
		LaunchBin   string `yaml:"LaunchBin"`
		ExtensionID string `yaml:"ExtensionID"`
	} `yaml:"Browser"`

	Limits struct {
		MaxFrameBytes int64 `yaml:"MaxFrameBytes"`
	} `yaml:"Limits"`

	Reaper struct {
		Enabled  string `yaml:"Enabled"`
		Interval int    `yaml:"Interval"` // seconds
	} `yaml:"Reaper"`

	Audit struct {
		Enabled string `yaml:"Enabled"`
	} `yaml:"Audit"`
}

// LoadFromBytes loads configuration from YAML bytes with environment
// variable expansion applied to the raw document before unmarshalling.
func LoadFromBytes(data []byte) (Config, error) {
	var c Config
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &c); err != nil {
		return c, err
	}
	applyDefaults(&c)
	return c, nil
}

// applyDefaults sets default values for unset config fields.
func applyDefaults(c *Config) {
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == 0 {
		c.Port = 9223
	}
	if c.Browser.Channel == "" {
		c.Browser.Channel = "chrome"
	}
	if c.Limits.MaxFrameBytes == 0 {
		c.Limits.MaxFrameBytes = 16 << 20 // 16 MiB, per spec §6
	}
	if c.Reaper.Enabled == "" {
		c.Reaper.Enabled = "true"
	}
	if c.Reaper.Interval == 0 {
		c.Reaper.Interval = 30
	}
	if c.Audit.Enabled == "" {
		c.Audit.Enabled = "true"
	}
}

// parseBool parses a string as boolean with a default value. Accepts
// "true", "1", "yes" as true and "false", "0", "no" as false; empty or
// other values return default.
func parseBool(s string, defaultVal bool) bool {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultVal
	}
}

// IsReaperEnabled reports whether the diagnostic reaper should run.
func (c Config) IsReaperEnabled() bool {
	return parseBool(c.Reaper.Enabled, true)
}

// IsAuditEnabled reports whether structured audit logging is active.
func (c Config) IsAuditEnabled() bool {
	return parseBool(c.Audit.Enabled, true)
}

// ReaperInterval returns the reaper sweep period as a duration.
func (c Config) ReaperInterval() time.Duration {
	return time.Duration(c.Reaper.Interval) * time.Second
}

// Addr returns the host:port listen address.
func (c Config) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
