package relay

import (
	"log/slog"
)

// sensitiveMethods are CDP methods whose invocation is flagged in the
// audit log as sensitive.
var sensitiveMethods = map[string]bool{
	"Runtime.evaluate":               true,
	"Runtime.callFunctionOn":         true,
	"Page.navigate":                  true,
	"Network.setCookie":              true,
	"Network.deleteCookies":          true,
	"Network.setExtraHTTPHeaders":    true,
	"Storage.clearDataForOrigin":     true,
	"Input.dispatchKeyEvent":         true,
	"DOM.setAttributeValue":          true,
	"Page.setDocumentContent":        true,
	"Fetch.fulfillRequest":           true,
	"Debugger.setBreakpointByUrl":    true,
	"Security.setIgnoreCertErrors":   true,
	"Browser.grantPermissions":       true,
	"Target.createBrowserContext":    true,
	"Emulation.setUserAgentOverride": true,
}

// IsSensitiveMethod reports whether method is in the fixed sensitive set.
func IsSensitiveMethod(method string) bool {
	return sensitiveMethods[method]
}

// AuditLogger is an observational structured logger of client->relay
// CDP commands. It never blocks or rejects a command: it only records
// the command and cannot affect propagation.
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger builds the default audit logger.
func NewAuditLogger() *AuditLogger {
	return &AuditLogger{logger: slog.Default().With("component", "cdp-relay")}
}

// LogCommand records a single client→relay command.
func (l *AuditLogger) LogCommand(method, sessionID string) {
	if l == nil {
		return
	}
	attrs := []any{"method", method}
	if sessionID != "" {
		attrs = append(attrs, "session", truncateID(sessionID))
	}
	if sensitiveMethods[method] {
		l.logger.Warn("cdp_sensitive_command", attrs...)
	} else {
		l.logger.Info("cdp_command", attrs...)
	}
}

func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
