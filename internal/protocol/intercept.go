package protocol

// CDP methods the relay answers locally instead of forwarding to the
// extension, in the order of spec §4.3.2, followed by
// Target.attachedToTarget, the event the relay synthesizes for a
// top-level Target.setAutoAttach.
const (
	MethodBrowserGetVersion          = "Browser.getVersion"
	MethodBrowserSetDownloadBehavior = "Browser.setDownloadBehavior"
	MethodTargetSetAutoAttach        = "Target.setAutoAttach"
	MethodTargetGetTargetInfo        = "Target.getTargetInfo"
	MethodTargetAttachedToTarget     = "Target.attachedToTarget"
)

// BridgeProtocolVersion, BridgeProduct and BridgeUserAgent are the
// fixed reply fields for Browser.getVersion (spec §4.3.2).
const (
	BridgeProtocolVersion = "1.3"
	BridgeProduct         = "Chrome/Extension-Bridge"
	BridgeUserAgent       = "CDP-Bridge-Server/1.0.0"
)

// BrowserVersionResult is the fixed local reply to Browser.getVersion.
type BrowserVersionResult struct {
	ProtocolVersion string `json:"protocolVersion"`
	Product         string `json:"product"`
	UserAgent       string `json:"userAgent"`
}

// DefaultBrowserVersion returns the fixed Browser.getVersion reply.
func DefaultBrowserVersion() BrowserVersionResult {
	return BrowserVersionResult{
		ProtocolVersion: BridgeProtocolVersion,
		Product:         BridgeProduct,
		UserAgent:       BridgeUserAgent,
	}
}

// Intercepted reports whether method is answered locally by the relay
// rather than forwarded to the extension. Target.setAutoAttach is
// intercepted only when called top-level (no sessionId); that
// sessionId-dependent branch is decided by the caller, not here.
func Intercepted(method string) bool {
	switch method {
	case MethodBrowserGetVersion, MethodBrowserSetDownloadBehavior,
		MethodTargetSetAutoAttach, MethodTargetGetTargetInfo:
		return true
	default:
		return false
	}
}
