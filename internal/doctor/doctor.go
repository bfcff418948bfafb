// Package doctor provides environment preflight checks for kumou.
package doctor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// VersionFunc returns a version string or an error if the component is unavailable.
type VersionFunc func() (string, error)

// Config holds injectable dependencies for each doctor check.
type Config struct {
	// Dictionary builds the morphological dictionary and returns a short
	// description of it (e.g. "ipa, normal mode").
	Dictionary func() (string, error)
	// DialogueCount loads the dialogue corpus and returns how many
	// dialogues it holds. Nil skips the check.
	DialogueCount func() (int, error)
	// PocketTTSVersion returns the output of `pocket-tts --version`.
	PocketTTSVersion VersionFunc
	// SkipPocketTTS skips the pocket-tts checks (paced engine).
	SkipPocketTTS bool
	// PythonVersion returns the Python version string (e.g. "3.11.4").
	PythonVersion VersionFunc
	// VoiceFiles is the list of voice file paths to verify on disk.
	VoiceFiles []string
}

// Result collects the outcome of all checks.
type Result struct {
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

// report prints one check line and records err as a failure.
func (r *Result) report(w io.Writer, name string, err error, detail string) {
	if err != nil {
		r.failures = append(r.failures, fmt.Sprintf("%s: %v", name, err))
		fmt.Fprintf(w, "%s %s: %v\n", FailMark, name, err)
		return
	}
	fmt.Fprintf(w, "%s %s: %s\n", PassMark, name, detail)
}

// Run executes all configured checks and writes human-readable output to w.
// Each check line is prefixed with PassMark or FailMark.
func Run(cfg Config, w io.Writer) Result {
	var res Result

	if cfg.Dictionary == nil {
		res.report(w, "dictionary", nil, "skipped")
	} else {
		desc, err := cfg.Dictionary()
		res.report(w, "dictionary", err, desc)
	}

	if cfg.DialogueCount == nil {
		res.report(w, "dialogue corpus", nil, "skipped")
	} else {
		n, err := cfg.DialogueCount()
		res.report(w, "dialogue corpus", err, fmt.Sprintf("%d dialogues", n))
	}

	if cfg.SkipPocketTTS {
		res.report(w, "pocket-tts", nil, "skipped (paced engine)")
		return res
	}

	ver, err := cfg.PocketTTSVersion()
	if err != nil {
		err = fmt.Errorf("not found (%w)", err)
	}
	res.report(w, "pocket-tts binary", err, ver)

	if cfg.PythonVersion != nil {
		pyVer, err := cfg.PythonVersion()
		if err != nil {
			err = fmt.Errorf("not found (%w)", err)
		} else {
			err = checkPythonVersion(pyVer)
		}
		res.report(w, "python version", err, pyVer)
	}

	for _, path := range cfg.VoiceFiles {
		res.report(w, "voice file "+path, CheckVoiceFile(path), "ok")
	}

	return res
}

// CheckVoiceFile reports whether path holds a usable voice embedding for
// --tts-voice: an existing, non-empty .safetensors file.
func CheckVoiceFile(path string) error {
	if !strings.EqualFold(filepath.Ext(path), ".safetensors") {
		return fmt.Errorf("%s: voice embeddings must have a .safetensors extension", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s: not a regular file", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s: empty file", path)
	}
	return nil
}

// checkPythonVersion returns an error if ver is outside [3.10, 3.15), the
// range pocket-tts supports. ver is expected to look like "3.11.4".
func checkPythonVersion(ver string) error {
	major, minor, err := parseMajorMinor(ver)
	if err != nil {
		return fmt.Errorf("cannot parse %q: %w", ver, err)
	}
	if major != 3 {
		return fmt.Errorf("requires Python 3, got %d", major)
	}
	if minor < 10 {
		return fmt.Errorf("requires Python >=3.10, got 3.%d", minor)
	}
	if minor >= 15 {
		return fmt.Errorf("requires Python <3.15, got 3.%d", minor)
	}
	return nil
}

func parseMajorMinor(ver string) (major, minor int, err error) {
	parts := strings.SplitN(strings.TrimPrefix(strings.TrimSpace(ver), "Python "), ".", 3)
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("unexpected version format %q", ver)
	}
	major, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("bad major in %q: %w", ver, err)
	}
	minor, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("bad minor in %q: %w", ver, err)
	}
	return major, minor, nil
}
