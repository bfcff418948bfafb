// Package analysis turns a sentence into tokens and the code-point
// intervals each token covers, ready for spoken-token tracking.
package analysis

import (
	"fmt"
	"log/slog"

	"github.com/example/kumou/internal/align"
	"github.com/example/kumou/internal/text"
	"github.com/example/kumou/internal/tokenizer"
)

// Sentence is the result of analyzing one sentence. Intervals has one entry
// per token and indexes into Text by code point.
type Sentence struct {
	Text      string            `json:"text"`
	Tokens    []tokenizer.Token `json:"tokens"`
	Intervals []align.Interval  `json:"intervals"`
	Fallbacks []align.Fallback  `json:"fallbacks,omitempty"`
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger used for alignment diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) { a.log = l }
}

// Analyzer runs the tokenizer and aligns its output to the input text.
type Analyzer struct {
	tok tokenizer.Tokenizer
	log *slog.Logger
}

func New(tok tokenizer.Tokenizer, opts ...Option) *Analyzer {
	a := &Analyzer{tok: tok, log: slog.Default()}
	for _, fn := range opts {
		fn(a)
	}
	return a
}

// Analyze normalizes input, tokenizes it and aligns the token surfaces.
// Tokenizer failures are returned as-is (wrapping tokenizer.ErrTokenization
// or tokenizer.ErrTokenizerInit); imperfect alignment never fails.
func (a *Analyzer) Analyze(input string) (Sentence, error) {
	s, err := text.Normalize(input)
	if err != nil {
		return Sentence{}, err
	}

	tokens, err := a.tok.Tokenize(s)
	if err != nil {
		return Sentence{}, fmt.Errorf("analyze sentence: %w", err)
	}

	rep := align.AlignReport(s, tokenizer.Surfaces(tokens))
	for _, fb := range rep.Fallbacks {
		a.log.Warn("alignment fallback used",
			slog.Int("token_index", fb.TokenIndex),
			slog.String("surface", fb.Surface),
			slog.Int("offset", fb.Offset),
			slog.String("reason", string(fb.Reason)),
		)
	}

	return Sentence{
		Text:      s,
		Tokens:    tokens,
		Intervals: rep.Intervals,
		Fallbacks: rep.Fallbacks,
	}, nil
}
