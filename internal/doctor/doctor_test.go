package doctor_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/kumou/internal/doctor"
)

var errBinaryNotFound = errors.New("executable file not found in $PATH")

func hasFailureContaining(failures []string, sub string) bool {
	for _, f := range failures {
		if strings.Contains(strings.ToLower(f), sub) {
			return true
		}
	}
	return false
}

func healthy() doctor.Config {
	return doctor.Config{
		Dictionary:       func() (string, error) { return "ipa, normal mode", nil },
		DialogueCount:    func() (int, error) { return 4, nil },
		PocketTTSVersion: func() (string, error) { return "1.2.3", nil },
		PythonVersion:    func() (string, error) { return "3.11.4", nil },
	}
}

func TestRun_AllChecksPass(t *testing.T) {
	var out strings.Builder
	result := doctor.Run(healthy(), &out)

	if result.Failed() {
		t.Errorf("expected all checks to pass; failures: %v", result.Failures())
	}

	for _, want := range []string{"dictionary: ipa", "4 dialogues", "pocket-tts binary: 1.2.3", "python version: 3.11.4"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestRun_PacedEngineSkipsPocketTTS(t *testing.T) {
	cfg := healthy()
	cfg.SkipPocketTTS = true
	cfg.PocketTTSVersion = func() (string, error) { return "", errBinaryNotFound }
	cfg.VoiceFiles = []string{"/nonexistent/voice.safetensors"}

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	if result.Failed() {
		t.Errorf("paced engine must not need pocket-tts; failures: %v", result.Failures())
	}
	if !strings.Contains(out.String(), "skipped") {
		t.Error("output should report the skipped pocket-tts checks")
	}
}

func TestRun_DictionaryFailure(t *testing.T) {
	cfg := healthy()
	cfg.Dictionary = func() (string, error) { return "", errors.New("tokenizer init failed") }

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	if !hasFailureContaining(result.Failures(), "dictionary") {
		t.Errorf("expected dictionary failure, got: %v", result.Failures())
	}
	if !strings.Contains(out.String(), doctor.FailMark) {
		t.Error("failed check should be marked")
	}
}

func TestRun_DialogueCorpusFailure(t *testing.T) {
	cfg := healthy()
	cfg.DialogueCount = func() (int, error) { return 0, errors.New("no *.json files") }

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	if !hasFailureContaining(result.Failures(), "dialogue corpus") {
		t.Errorf("expected dialogue corpus failure, got: %v", result.Failures())
	}
}

func TestRun_NilChecksAreSkipped(t *testing.T) {
	var out strings.Builder
	result := doctor.Run(doctor.Config{SkipPocketTTS: true}, &out)

	if result.Failed() {
		t.Errorf("unexpected failures: %v", result.Failures())
	}
	if strings.Count(out.String(), "skipped") != 3 {
		t.Errorf("want three skipped lines, got:\n%s", out.String())
	}
}

func TestRun_PocketTTSMissingFails(t *testing.T) {
	cfg := healthy()
	cfg.PocketTTSVersion = func() (string, error) { return "", errBinaryNotFound }

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	if !result.Failed() {
		t.Fatal("expected failure when pocket-tts is not found")
	}
	if !hasFailureContaining(result.Failures(), "pocket-tts") {
		t.Errorf("expected failure mentioning pocket-tts, got: %v", result.Failures())
	}
}

func TestRun_PythonOutOfRangeFails(t *testing.T) {
	for _, ver := range []string{"3.9.7", "3.15.0"} {
		cfg := healthy()
		cfg.PythonVersion = func() (string, error) { return ver, nil }

		var out strings.Builder
		result := doctor.Run(cfg, &out)

		if !hasFailureContaining(result.Failures(), "python") {
			t.Errorf("python %s: expected python failure, got: %v", ver, result.Failures())
		}
	}
}

func TestRun_VoiceFiles(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "alba.safetensors")
	if err := os.WriteFile(present, []byte("x"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg := healthy()
	cfg.VoiceFiles = []string{present, filepath.Join(dir, "missing.safetensors")}

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	failures := result.Failures()
	if len(failures) != 1 || !strings.Contains(failures[0], "missing.safetensors") {
		t.Errorf("failures = %v; want only the missing voice file", failures)
	}
}

func TestRun_OldPythonIsReported(t *testing.T) {
	cfg := healthy()
	cfg.PythonVersion = func() (string, error) { return "3.8.10", nil }

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	if !result.Failed() {
		t.Fatal("expected failure for python 3.8")
	}
	if !strings.Contains(out.String(), doctor.FailMark+" python version: requires Python >=3.10") {
		t.Errorf("output:\n%s", out.String())
	}

	// Failures returns a copy.
	result.Failures()[0] = "changed"
	if result.Failures()[0] == "changed" {
		t.Error("Failures must not expose internal state")
	}
}

func TestCheckVoiceFile(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, data []byte) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o600); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		return path
	}

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"valid", write("me.safetensors", []byte("x")), false},
		{"upper-case extension", write("ME.SAFETENSORS", []byte("x")), false},
		{"empty", write("empty.safetensors", nil), true},
		{"wrong extension", write("me.wav", []byte("x")), true},
		{"missing", filepath.Join(dir, "missing.safetensors"), true},
		{"directory", func() string {
			p := filepath.Join(dir, "dir.safetensors")
			if err := os.Mkdir(p, 0o700); err != nil {
				t.Fatalf("Mkdir: %v", err)
			}
			return p
		}(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := doctor.CheckVoiceFile(tt.path); (err != nil) != tt.wantErr {
				t.Errorf("CheckVoiceFile(%q) = %v; wantErr=%v", tt.path, err, tt.wantErr)
			}
		})
	}
}
