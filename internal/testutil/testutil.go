// Package testutil provides shared skip helpers for integration tests.
//
// Each helper calls t.Skip with a clear human-readable reason when the named
// prerequisite is absent, so integration tests remain runnable in partial
// environments without failing noisily.
//
// Typical usage:
//
//	func TestPocketIntegration(t *testing.T) {
//	    testutil.RequirePocketTTS(t)
//	    ...
//	}
package testutil

import (
	"os"
	"os/exec"
	"runtime"
	"testing"
)

// PocketTTSPath returns the pocket-tts executable tests should use: the
// KUMOU_TTS_CLI_PATH environment variable, or "pocket-tts" on PATH.
func PocketTTSPath() string {
	if exe := os.Getenv("KUMOU_TTS_CLI_PATH"); exe != "" {
		return exe
	}
	return "pocket-tts"
}

// RequirePocketTTS skips the test if the pocket-tts binary is not found in
// PATH or at the path given by KUMOU_TTS_CLI_PATH.
func RequirePocketTTS(tb testing.TB) {
	tb.Helper()

	exe := PocketTTSPath()
	if _, err := exec.LookPath(exe); err != nil {
		tb.Skipf("pocket-tts binary not available (%q not in PATH); set KUMOU_TTS_CLI_PATH to override", exe)
	}
}

// RequirePOSIXShell skips the test on platforms where shell-script stand-ins
// for external executables cannot run.
func RequirePOSIXShell(tb testing.TB) {
	tb.Helper()

	if runtime.GOOS == "windows" {
		tb.Skipf("shell script stand-ins require a POSIX shell (GOOS=%s)", runtime.GOOS)
	}
}

// RequireFile skips the test if path does not exist.
func RequireFile(tb testing.TB, path string) {
	tb.Helper()

	if _, err := os.Stat(path); err != nil {
		tb.Skipf("required file %q not available: %v", path, err)
	}
}
