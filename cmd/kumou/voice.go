package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	pockettts "github.com/MeKo-Christian/go-call-pocket-tts"
	"github.com/example/kumou/internal/audio"
	"github.com/example/kumou/internal/config"
	"github.com/example/kumou/internal/doctor"
	"github.com/spf13/cobra"
)

// exportVoice is swapped out in tests.
var exportVoice = func(ctx context.Context, audioPath, outPath string, opts *pockettts.ExportVoiceOptions) error {
	return pockettts.ExportVoice(ctx, audioPath, outPath, opts)
}

func newVoiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "voice",
		Short: "Manage pocket-tts voices for the speak command",
	}

	cmd.AddCommand(newVoiceExportCmd())

	return cmd
}

func newVoiceExportCmd() *cobra.Command {
	var audioPath string
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Turn a spoken WAV prompt into a voice for --tts-voice",
		Long: "Turn a spoken WAV prompt into a voice embedding (.safetensors).\n\n" +
			"The result is checked the same way `kumou doctor` checks voice files,\n" +
			"then can be passed to --tts-voice with --tts-engine=pocket-tts.\n" +
			"Requires a Python pocket-tts installation.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if err := checkVoicePrompt(audioPath); err != nil {
				return err
			}
			if outPath == "" {
				return errors.New("--out is required")
			}
			if !strings.EqualFold(filepath.Ext(outPath), ".safetensors") {
				return fmt.Errorf("--out %q: voices must be saved as .safetensors", outPath)
			}

			exe := cfg.TTS.CLIPath
			if exe == "" {
				exe = "pocket-tts"
			}
			if _, err := exec.LookPath(exe); err != nil {
				return fmt.Errorf("voice export needs the pocket-tts CLI (--tts-cli-path): %w", err)
			}

			err = exportVoice(cmd.Context(), audioPath, outPath, &pockettts.ExportVoiceOptions{
				Config:         cfg.TTS.CLIConfigPath,
				Quiet:          cfg.TTS.Quiet,
				ExecutablePath: exe,
				LogWriter:      cmd.ErrOrStderr(),
			})
			var notFound *pockettts.ErrExecutableNotFound
			if errors.As(err, &notFound) {
				return fmt.Errorf("voice export needs the pocket-tts CLI (--tts-cli-path): %w", err)
			}
			if err != nil {
				return fmt.Errorf("voice export: %w", err)
			}

			if err := doctor.CheckVoiceFile(outPath); err != nil {
				return fmt.Errorf("exported voice is unusable: %w", err)
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%s voice file: %s\n", doctor.PassMark, outPath)
			_, _ = fmt.Fprintf(out, "speak with: kumou speak --tts-engine=%s --tts-voice=%s\n", config.EnginePocket, outPath)

			return nil
		},
	}

	cmd.Flags().StringVar(&audioPath, "audio", "", "Spoken prompt (WAV) to clone the voice from")
	cmd.Flags().StringVar(&outPath, "out", "", "Where to write the voice (.safetensors)")

	return cmd
}

// checkVoicePrompt makes sure path is a WAV with audio in it before handing
// it to pocket-tts, whose own errors on bad input are hard to read.
func checkVoicePrompt(path string) error {
	if path == "" {
		return errors.New("--audio is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read --audio: %w", err)
	}
	clip, err := audio.DecodeWAV(data)
	if err != nil {
		return fmt.Errorf("--audio %q: %w", path, err)
	}
	if clip.Frames() == 0 {
		return fmt.Errorf("--audio %q: no audio samples", path)
	}
	return nil
}
