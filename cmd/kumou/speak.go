package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/example/kumou/internal/analysis"
	"github.com/example/kumou/internal/config"
	"github.com/example/kumou/internal/session"
	"github.com/example/kumou/internal/speech"
	"github.com/spf13/cobra"
)

func newSpeakCmd() *cobra.Command {
	var split bool
	var savePath string

	cmd := &cobra.Command{
		Use:   "speak [text...]",
		Short: "Read text aloud while highlighting the token being spoken",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			engineName, err := config.NormalizeEngine(cfg.TTS.Engine)
			if err != nil {
				return err
			}
			if savePath != "" && engineName != config.EnginePocket {
				return fmt.Errorf("--save requires --tts-engine=%s", config.EnginePocket)
			}

			input, err := readInputText(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			an, err := newAnalyzer(cfg)
			if err != nil {
				return err
			}

			sentences, err := analyzeInput(an, input, split)
			if err != nil {
				return err
			}

			var sink func([]byte) error
			if savePath != "" {
				sink = wavSink(savePath)
			}

			engine, err := speech.FromConfig(cfg.TTS, sink, slog.Default())
			if err != nil {
				return err
			}

			sessionOpts, err := session.OptionsFromConfig(cfg.TTS)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			err = speakSentences(ctx, engine, sessionOpts, sentences, newHighlightView(cmd.OutOrStdout()))
			if isInterrupted(err) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&split, "split", false, "Split the input into sentences and speak them one after another")
	cmd.Flags().StringVar(&savePath, "save", "", "Save each synthesized utterance as WAV (pocket-tts engine only)")

	return cmd
}

// speakSentences plays each sentence in turn through one Player, rendering
// highlight changes on view.
func speakSentences(
	ctx context.Context,
	engine speech.Engine,
	opts []session.Option,
	sentences []analysis.Sentence,
	view *highlightView,
) error {
	// current is written only while no loop is running.
	var current analysis.Sentence
	onChange := func(idx int, ok bool) { view.show(current, idx, ok) }

	player := session.New(engine, append(opts, session.WithOnChange(onChange))...)
	defer player.Stop()

	for _, s := range sentences {
		current = s
		if err := player.Start(ctx, s.Text, s.Intervals); err != nil {
			return err
		}

		select {
		case <-player.Done():
		case <-ctx.Done():
			player.Stop()
			view.finish(s)
			return ctx.Err()
		}
		view.finish(s)
	}
	return nil
}

// wavSink writes the n-th utterance to path, with "-n" inserted before the
// extension from the second utterance on.
func wavSink(path string) func([]byte) error {
	n := 0
	return func(wav []byte) error {
		n++
		target := numberedPath(path, n)
		if err := os.WriteFile(target, wav, 0o644); err != nil {
			return fmt.Errorf("save utterance: %w", err)
		}
		slog.Debug("utterance saved", slog.String("path", target), slog.Int("bytes", len(wav)))
		return nil
	}
}

func numberedPath(path string, n int) string {
	if n <= 1 {
		return path
	}
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(path, ext), n, ext)
}

// isInterrupted reports whether err is the user stopping playback.
func isInterrupted(err error) bool {
	return errors.Is(err, context.Canceled)
}
