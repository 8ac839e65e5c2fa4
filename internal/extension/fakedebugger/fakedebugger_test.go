package fakedebugger_test

import (
	"testing"

	"github.com/cdprelay/cdprelay/internal/extension/extensiontest"
	"github.com/cdprelay/cdprelay/internal/extension/fakedebugger"
)

func TestFakeDebuggerSatisfiesContract(t *testing.T) {
	extensiontest.VerifyContract(t, fakedebugger.New(), "tab-1")
}
