package tokenizer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ikawaha/kagome-dict/ipa"
	kagome "github.com/ikawaha/kagome/v2/tokenizer"
)

// Segmentation modes accepted by NewIPADIC.
const (
	ModeNormal   = "normal"
	ModeSearch   = "search"
	ModeExtended = "extended"
)

// NormalizeMode validates a segmentation mode name. Empty selects normal.
func NormalizeMode(raw string) (string, error) {
	mode := strings.ToLower(strings.TrimSpace(raw))
	switch mode {
	case "":
		return ModeNormal, nil
	case ModeNormal, ModeSearch, ModeExtended:
		return mode, nil
	default:
		return "", fmt.Errorf("invalid analysis mode %q (expected %s|%s|%s)", raw, ModeNormal, ModeSearch, ModeExtended)
	}
}

// IPADIC tokenizes Japanese text with kagome and the embedded IPA
// dictionary. It is safe for concurrent use.
type IPADIC struct {
	t    *kagome.Tokenizer
	mode kagome.TokenizeMode
}

// NewIPADIC loads the embedded dictionary. Loading takes a noticeable
// moment, so callers should build one IPADIC and share it.
func NewIPADIC(mode string) (tok *IPADIC, err error) {
	mode, err = NormalizeMode(mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenizerInit, err)
	}

	defer func() {
		if r := recover(); r != nil {
			tok, err = nil, fmt.Errorf("%w: load IPA dictionary: %v", ErrTokenizerInit, r)
		}
	}()

	t, err := kagome.New(ipa.Dict(), kagome.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenizerInit, err)
	}

	return &IPADIC{t: t, mode: kagomeMode(mode)}, nil
}

func kagomeMode(mode string) kagome.TokenizeMode {
	switch mode {
	case ModeSearch:
		return kagome.Search
	case ModeExtended:
		return kagome.Extended
	default:
		return kagome.Normal
	}
}

// Tokenize returns one Token per morpheme in text order.
func (d *IPADIC) Tokenize(text string) (tokens []Token, err error) {
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("%w: input is not valid UTF-8", ErrTokenization)
	}

	defer func() {
		if r := recover(); r != nil {
			tokens, err = nil, fmt.Errorf("%w: %v", ErrTokenization, r)
		}
	}()

	morphs := d.t.Analyze(text, d.mode)
	tokens = make([]Token, 0, len(morphs))
	for _, m := range morphs {
		if m.Class == kagome.DUMMY {
			continue
		}
		tokens = append(tokens, FromFeatures(m.Surface, m.Features()))
	}
	return tokens, nil
}
