package relay

import "testing"

func TestSensitiveMethodSetIsExact(t *testing.T) {
	want := []string{
		"Runtime.evaluate",
		"Runtime.callFunctionOn",
		"Page.navigate",
		"Network.setCookie",
		"Network.deleteCookies",
		"Network.setExtraHTTPHeaders",
		"Storage.clearDataForOrigin",
		"Input.dispatchKeyEvent",
		"DOM.setAttributeValue",
		"Page.setDocumentContent",
		"Fetch.fulfillRequest",
		"Debugger.setBreakpointByUrl",
		"Security.setIgnoreCertErrors",
		"Browser.grantPermissions",
		"Target.createBrowserContext",
		"Emulation.setUserAgentOverride",
	}
	if len(want) != len(sensitiveMethods) {
		t.Fatalf("sensitiveMethods has %d entries, want %d", len(sensitiveMethods), len(want))
	}
	for _, m := range want {
		if !IsSensitiveMethod(m) {
			t.Errorf("expected %q to be sensitive", m)
		}
	}
	if IsSensitiveMethod("Page.enable") {
		t.Error("Page.enable should not be flagged sensitive")
	}
}
