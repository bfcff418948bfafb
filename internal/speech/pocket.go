package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/example/kumou/internal/audio"
)

// ErrExecutableNotFound is returned when the pocket-tts CLI cannot be found.
var ErrExecutableNotFound = errors.New("pocket-tts executable not found")

// PocketOptions configures the pocket-tts CLI engine.
type PocketOptions struct {
	// ExecutablePath defaults to "pocket-tts" on PATH.
	ExecutablePath string
	ConfigPath     string
	Voice          string
	Quiet          bool
	// Sink, when set, receives the synthesized WAV before playback starts.
	Sink   func(wav []byte) error
	Logger *slog.Logger
}

// Pocket synthesizes each utterance with the pocket-tts CLI, then reports
// boundaries spread evenly over the length of the generated audio.
type Pocket struct {
	opts PocketOptions
	log  *slog.Logger
	utterances
}

func NewPocket(opts PocketOptions) *Pocket {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Pocket{opts: opts, log: log}
}

// Synthesize runs `pocket-tts generate` for text and returns the WAV bytes.
func (p *Pocket) Synthesize(ctx context.Context, text string) ([]byte, error) {
	exe := p.opts.ExecutablePath
	if exe == "" {
		exe = "pocket-tts"
	}
	if _, err := exec.LookPath(exe); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrExecutableNotFound, exe, err)
	}

	args := []string{"generate", "--text", "-", "--output-path", "-"}
	if strings.TrimSpace(p.opts.Voice) != "" {
		args = append(args, "--voice", p.opts.Voice)
	}
	if p.opts.ConfigPath != "" {
		args = append(args, "--config", p.opts.ConfigPath)
	}
	if p.opts.Quiet {
		args = append(args, "--quiet")
	}

	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Stdin = strings.NewReader(text)

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("pocket-tts generate: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("pocket-tts generate: %w", err)
	}
	return out.Bytes(), nil
}

func (p *Pocket) Speak(ctx context.Context, text string) (<-chan Event, error) {
	ctx = p.begin(ctx)

	out := make(chan Event, 1)
	go func() {
		defer close(out)

		select {
		case out <- Synthesizing():
		case <-ctx.Done():
			interrupt(out)
			return
		}

		start := time.Now()
		wav, err := p.Synthesize(ctx, text)
		if err != nil {
			p.fail(ctx, out, err)
			return
		}

		clip, err := audio.DecodeWAV(wav)
		if err != nil {
			p.fail(ctx, out, fmt.Errorf("decode pocket-tts output: %w", err))
			return
		}

		if p.opts.Sink != nil {
			if err := p.opts.Sink(wav); err != nil {
				p.fail(ctx, out, fmt.Errorf("audio sink: %w", err))
				return
			}
		}

		p.log.DebugContext(ctx, "utterance synthesized",
			slog.Int("text_len", utf8.RuneCountInString(text)),
			slog.Int64("synth_ms", time.Since(start).Milliseconds()),
			slog.Int64("audio_ms", clip.Duration().Milliseconds()),
		)

		n := max(utf8.RuneCountInString(text), 1)
		pace(ctx, text, clip.Duration()/time.Duration(n), out)
	}()
	return out, nil
}

func (p *Pocket) fail(ctx context.Context, out chan<- Event, err error) {
	if ctx.Err() != nil {
		interrupt(out)
		return
	}
	p.log.WarnContext(ctx, "utterance failed", slog.String("error", err.Error()))
	out <- Failed(err)
}
