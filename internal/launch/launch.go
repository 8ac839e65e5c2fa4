// Package launch implements the relay's launch handoff (C7): locating
// a Chromium-based browser binary on the host and opening it at the
// extension's consent URL. The relay never owns the browser it opens
// here, it only hands off to it.
package launch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// Channel identifies the kind of Chromium-based browser a binary
// belongs to.
type Channel string

const (
	ChannelChrome   Channel = "chrome"
	ChannelBrave    Channel = "brave"
	ChannelEdge     Channel = "msedge"
	ChannelChromium Channel = "chromium"
	ChannelCanary   Channel = "canary"
	ChannelCustom   Channel = "custom"
)

// Executable is a discovered browser binary.
type Executable struct {
	Channel Channel
	Path    string
}

var (
	// ErrUnsupportedChannel is returned when the host operating system
	// is one this package has no discovery logic for.
	ErrUnsupportedChannel = errors.New("unsupported channel")
	// ErrExecutableNotFound is returned when no candidate binary exists
	// on disk for the requested (or auto-detected) channel.
	ErrExecutableNotFound = errors.New("executable not found")
)

// ExtensionID is the extension's stable identifier, used as the host
// component of the chrome-extension:// consent URL.
const ExtensionID = "cdprelaybridge"

// Find locates a browser executable. A non-empty override is used
// verbatim if it exists on disk; otherwise the host's default browser
// is probed first, then per-OS well-known install paths, taking the
// first that exists whatever its channel (spec §6: failure yields
// ErrExecutableNotFound).
func Find(override string) (*Executable, error) {
	if override != "" {
		if !fileExists(override) {
			return nil, fmt.Errorf("%w: %s", ErrExecutableNotFound, override)
		}
		return &Executable{Channel: ChannelCustom, Path: override}, nil
	}

	if exe := detectDefaultBrowser(); exe != nil {
		return exe, nil
	}

	switch runtime.GOOS {
	case "darwin":
		if exe := findMac(); exe != nil {
			return exe, nil
		}
	case "linux":
		if exe := findLinux(); exe != nil {
			return exe, nil
		}
	case "windows":
		if exe := findWindows(); exe != nil {
			return exe, nil
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedChannel, runtime.GOOS)
	}
	return nil, ErrExecutableNotFound
}

// Handoff opens the discovered browser at the extension's consent
// page, passing the relay's extension endpoint URL and the upstream
// client's info as query parameters (spec §6). It is fire-and-forget:
// the relay does not own this browser process's lifecycle, so the
// process is released immediately after starting and no exit status
// is observed.
type Handoff struct {
	BrowserOverride string

	mu sync.RWMutex
}

// SetBrowserOverride updates the override path, picked up by the next
// Launch call. Used to apply a live config reload (C5) without
// restarting the relay.
func (h *Handoff) SetBrowserOverride(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.BrowserOverride = path
}

func (h *Handoff) override() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.BrowserOverride
}

// Launch implements relay.Launcher.
func (h *Handoff) Launch(ctx context.Context, extensionURL string, clientInfo json.RawMessage) error {
	exe, err := Find(h.override())
	if err != nil {
		return err
	}
	u, err := ConsentURL(extensionURL, clientInfo)
	if err != nil {
		return err
	}
	// Deliberately not exec.CommandContext(ctx, ...): the caller's ctx
	// ends when the handoff call returns, and the browser outlives that.
	cmd := exec.Command(exe.Path, u)
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait() // reap the process; the relay does not track it further
	return nil
}

// ConsentURL builds the chrome-extension://<id>/connect.html URL with
// mcpRelayUrl and client query parameters, per spec §6 exactly.
func ConsentURL(extensionURL string, clientInfo json.RawMessage) (string, error) {
	u := url.URL{
		Scheme: "chrome-extension",
		Host:   ExtensionID,
		Path:   "/connect.html",
	}
	q := u.Query()
	q.Set("mcpRelayUrl", extensionURL)
	if len(clientInfo) > 0 {
		q.Set("client", string(clientInfo))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func findMac() *Executable {
	home := os.Getenv("HOME")
	candidates := []Executable{
		{ChannelChrome, "/Applications/Google Chrome.app/Contents/MacOS/Google Chrome"},
		{ChannelChrome, filepath.Join(home, "Applications/Google Chrome.app/Contents/MacOS/Google Chrome")},
		{ChannelBrave, "/Applications/Brave Browser.app/Contents/MacOS/Brave Browser"},
		{ChannelEdge, "/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge"},
		{ChannelChromium, "/Applications/Chromium.app/Contents/MacOS/Chromium"},
		{ChannelCanary, "/Applications/Google Chrome Canary.app/Contents/MacOS/Google Chrome Canary"},
	}
	return firstExisting(candidates)
}

func findLinux() *Executable {
	candidates := []Executable{
		{ChannelChrome, "/usr/bin/google-chrome"},
		{ChannelChrome, "/usr/bin/google-chrome-stable"},
		{ChannelBrave, "/usr/bin/brave-browser"},
		{ChannelEdge, "/usr/bin/microsoft-edge"},
		{ChannelChromium, "/usr/bin/chromium"},
		{ChannelChromium, "/usr/bin/chromium-browser"},
		{ChannelChromium, "/snap/bin/chromium"},
	}
	return firstExisting(candidates)
}

func findWindows() *Executable {
	localAppData := os.Getenv("LOCALAPPDATA")
	programFiles := os.Getenv("ProgramFiles")
	if programFiles == "" {
		programFiles = `C:\Program Files`
	}

	var candidates []Executable
	if localAppData != "" {
		candidates = append(candidates,
			Executable{ChannelChrome, filepath.Join(localAppData, "Google", "Chrome", "Application", "chrome.exe")},
			Executable{ChannelBrave, filepath.Join(localAppData, "BraveSoftware", "Brave-Browser", "Application", "brave.exe")},
			Executable{ChannelEdge, filepath.Join(localAppData, "Microsoft", "Edge", "Application", "msedge.exe")},
		)
	}
	candidates = append(candidates,
		Executable{ChannelChrome, filepath.Join(programFiles, "Google", "Chrome", "Application", "chrome.exe")},
		Executable{ChannelEdge, filepath.Join(programFiles, "Microsoft", "Edge", "Application", "msedge.exe")},
	)
	return firstExisting(candidates)
}

func firstExisting(candidates []Executable) *Executable {
	for i := range candidates {
		if fileExists(candidates[i].Path) {
			c := candidates[i]
			return &c
		}
	}
	return nil
}

// detectDefaultBrowser probes the OS for the user's configured default
// browser, returning nil (fall through to well-known paths) if it
// can't be determined or isn't Chromium-based.
func detectDefaultBrowser() *Executable {
	switch runtime.GOOS {
	case "darwin":
		return detectDefaultMac()
	case "linux":
		return detectDefaultLinux()
	default:
		return nil
	}
}

func detectDefaultMac() *Executable {
	out, err := exec.Command("osascript", "-e", `
		use framework "AppKit"
		set ws to current application's NSWorkspace's sharedWorkspace()
		set defaultBrowser to ws's URLForApplicationToOpenURL:(current application's NSURL's URLWithString:"https://")
		if defaultBrowser is missing value then return ""
		return defaultBrowser's |path|() as text
	`).Output()
	if err != nil {
		return nil
	}
	bundlePath := strings.TrimSpace(string(out))
	if bundlePath == "" {
		return nil
	}
	bundles := map[string]Channel{
		"Google Chrome.app":        ChannelChrome,
		"Google Chrome Canary.app": ChannelCanary,
		"Brave Browser.app":        ChannelBrave,
		"Microsoft Edge.app":       ChannelEdge,
		"Chromium.app":             ChannelChromium,
	}
	for name, channel := range bundles {
		if strings.Contains(bundlePath, name) {
			exeName := strings.TrimSuffix(name, ".app")
			exePath := filepath.Join(bundlePath, "Contents", "MacOS", exeName)
			if fileExists(exePath) {
				return &Executable{Channel: channel, Path: exePath}
			}
		}
	}
	return nil
}

func detectDefaultLinux() *Executable {
	out, err := exec.Command("xdg-settings", "get", "default-web-browser").Output()
	if err != nil {
		return nil
	}
	desktopID := strings.TrimSpace(string(out))
	desktops := map[string]Channel{
		"google-chrome.desktop":        ChannelChrome,
		"google-chrome-stable.desktop": ChannelChrome,
		"brave-browser.desktop":        ChannelBrave,
		"microsoft-edge.desktop":       ChannelEdge,
		"chromium.desktop":             ChannelChromium,
		"chromium-browser.desktop":     ChannelChromium,
	}
	channel, ok := desktops[desktopID]
	if !ok {
		return nil
	}
	exe := findLinux()
	if exe != nil {
		exe.Channel = channel
	}
	return exe
}
