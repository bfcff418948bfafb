package main

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/example/kumou/internal/config"
	"github.com/example/kumou/internal/dialogue"
	"github.com/example/kumou/internal/doctor"
	"github.com/example/kumou/internal/tokenizer"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run local dictionary, corpus and speech engine checks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			engine, err := config.NormalizeEngine(cfg.TTS.Engine)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "engine: %s\n", engine)

			exe := cfg.TTS.CLIPath
			if exe == "" {
				exe = "pocket-tts"
			}

			dcfg := doctor.Config{
				Dictionary: func() (string, error) {
					return probeDictionary(cfg.Analysis.Mode)
				},
				PocketTTSVersion: func() (string, error) {
					return probePocketTTSVersion(exe)
				},
				SkipPocketTTS: engine != config.EnginePocket,
				PythonVersion: probePythonVersion,
				VoiceFiles:    collectVoiceFiles(cfg),
			}
			if cfg.Paths.DialogueDir != "" {
				dcfg.DialogueCount = func() (int, error) {
					store, err := dialogue.Load(cfg.Paths.DialogueDir)
					if err != nil {
						return 0, err
					}
					return store.Len(), nil
				}
			}

			result := doctor.Run(dcfg, out)

			if result.Failed() {
				for _, f := range result.Failures() {
					// #nosec G705 -- Writes plain diagnostic text to stderr for CLI output, not HTML rendering.
					fmt.Fprintf(cmd.ErrOrStderr(), "FAIL: %s\n", f)
				}

				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintln(out, "doctor checks passed")

			return nil
		},
	}

	return cmd
}

// probeDictionary builds the tokenizer and runs one sentence through it.
func probeDictionary(mode string) (string, error) {
	tok, err := tokenizer.NewIPADIC(mode)
	if err != nil {
		return "", err
	}
	tokens, err := tok.Tokenize("今日は晴れ")
	if err != nil {
		return "", err
	}
	if len(tokens) == 0 {
		return "", errors.New("dictionary produced no tokens")
	}
	normalized, _ := tokenizer.NormalizeMode(mode)
	return fmt.Sprintf("ipa, %s mode", normalized), nil
}

// probePocketTTSVersion runs `pocket-tts --version` and returns its output.
func probePocketTTSVersion(exe string) (string, error) {
	out, err := exec.CommandContext(context.Background(), exe, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("%s --version failed: %w", exe, err)
	}

	return strings.TrimSpace(string(out)), nil
}

// probePythonVersion tries python3 then python and returns the version string.
func probePythonVersion() (string, error) {
	for _, bin := range []string{"python3", "python"} {
		out, err := exec.CommandContext(context.Background(), bin, "--version").Output()
		if err != nil {
			continue
		}
		raw := strings.TrimPrefix(strings.TrimSpace(string(out)), "Python ")
		if raw != "" {
			return raw, nil
		}
	}

	return "", errors.New("python3/python not found on PATH")
}

// collectVoiceFiles returns the configured voice when it names a local
// embedding file rather than a built-in pocket-tts voice.
func collectVoiceFiles(cfg config.Config) []string {
	v := strings.TrimSpace(cfg.TTS.Voice)
	if v == "" || !strings.HasSuffix(strings.ToLower(v), ".safetensors") {
		return nil
	}
	return []string{v}
}
