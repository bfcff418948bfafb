package analysis

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/example/kumou/internal/align"
	"github.com/example/kumou/internal/text"
	"github.com/example/kumou/internal/tokenizer"
)

// stubTokenizer implements tokenizer.Tokenizer for tests.
type stubTokenizer struct {
	surfaces []string
	err      error
	got      string
}

func (s *stubTokenizer) Tokenize(input string) ([]tokenizer.Token, error) {
	s.got = input
	if s.err != nil {
		return nil, s.err
	}
	out := make([]tokenizer.Token, len(s.surfaces))
	for i, surf := range s.surfaces {
		out[i] = tokenizer.FromFeatures(surf, []string{"名詞"})
	}
	return out, nil
}

func TestAnalyze(t *testing.T) {
	tok := &stubTokenizer{surfaces: []string{"今日", "は", "晴れ"}}
	a := New(tok)

	got, err := a.Analyze("  今日は晴れ\n")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if tok.got != "今日は晴れ" {
		t.Errorf("tokenizer received %q, want normalized text", tok.got)
	}
	if got.Text != "今日は晴れ" {
		t.Errorf("Text = %q", got.Text)
	}
	if len(got.Tokens) != 3 {
		t.Fatalf("got %d tokens, want 3", len(got.Tokens))
	}

	want := []align.Interval{{Start: 0, End: 2}, {Start: 2, End: 3, TokenIndex: 1}, {Start: 3, End: 5, TokenIndex: 2}}
	for i := range want {
		if got.Intervals[i] != want[i] {
			t.Errorf("interval %d = %+v, want %+v", i, got.Intervals[i], want[i])
		}
	}
	if len(got.Fallbacks) != 0 {
		t.Errorf("unexpected fallbacks %+v", got.Fallbacks)
	}
}

func TestAnalyze_EmptyText(t *testing.T) {
	_, err := New(&stubTokenizer{}).Analyze(" 　 ")
	if !errors.Is(err, text.ErrEmptyText) {
		t.Fatalf("err = %v, want ErrEmptyText", err)
	}
}

func TestAnalyze_TokenizerFailurePropagates(t *testing.T) {
	tok := &stubTokenizer{err: tokenizer.ErrTokenization}
	_, err := New(tok).Analyze("今日")
	if !errors.Is(err, tokenizer.ErrTokenization) {
		t.Fatalf("err = %v, want ErrTokenization", err)
	}
}

func TestAnalyze_FallbackIsLoggedNotFatal(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	tok := &stubTokenizer{surfaces: []string{"AB", "は"}}
	got, err := New(tok, WithLogger(logger)).Analyze("ＡＢは")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if len(got.Intervals) != 2 {
		t.Fatalf("got %d intervals, want 2", len(got.Intervals))
	}
	if len(got.Fallbacks) != 1 || got.Fallbacks[0].Reason != align.ReasonNormalized {
		t.Errorf("fallbacks = %+v", got.Fallbacks)
	}
	if !strings.Contains(logs.String(), "alignment fallback used") {
		t.Errorf("expected fallback log line, got %q", logs.String())
	}
}

func TestPosTables(t *testing.T) {
	tests := []struct {
		major, class, english string
	}{
		{"名詞", "pos-noun", "Noun"},
		{"助詞", "pos-particle", "Particle"},
		{"助動詞", "pos-aux-verb", "Aux. Verb"},
		{"形容動詞", "pos-other", "na-Adjective"},
		{"フィラー", "pos-other", "Filler"},
		{"その他", "pos-other", "Other"},
	}
	for _, tt := range tests {
		if got := PosCSSClass(tt.major); got != tt.class {
			t.Errorf("PosCSSClass(%q) = %q, want %q", tt.major, got, tt.class)
		}
		if got := PosEnglish(tt.major); got != tt.english {
			t.Errorf("PosEnglish(%q) = %q, want %q", tt.major, got, tt.english)
		}
	}
}
