package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/kumou/internal/audio"
)

// FakePocketTTS writes a pocket-tts stand-in script that swallows stdin,
// waits delay and prints audioLen of silent 24 kHz WAV on stdout. It skips
// the test on systems without a POSIX shell.
func FakePocketTTS(tb testing.TB, audioLen, delay time.Duration) string {
	tb.Helper()
	RequirePOSIXShell(tb)

	dir := tb.TempDir()
	wav, err := audio.EncodeWAV(audio.Silence(audioLen, audio.ExpectedSampleRate))
	if err != nil {
		tb.Fatalf("encode fixture: %v", err)
	}
	wavPath := filepath.Join(dir, "out.wav")
	if err := os.WriteFile(wavPath, wav, 0o600); err != nil {
		tb.Fatalf("write fixture: %v", err)
	}

	script := "#!/bin/sh\ncat >/dev/null\n"
	if delay > 0 {
		script += fmt.Sprintf("sleep %.3f\n", delay.Seconds())
	}
	script += "cat '" + wavPath + "'\n"

	exe := filepath.Join(dir, "pocket-tts")
	if err := os.WriteFile(exe, []byte(script), 0o700); err != nil { // #nosec G306 -- test executable
		tb.Fatalf("write script: %v", err)
	}
	return exe
}
