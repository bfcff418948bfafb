// Package tokenizer is the boundary to the morphological analyzer. It turns
// a sentence into an ordered list of tokens, each a surface string plus the
// grammatical features the analyzer attached to it.
package tokenizer

import "errors"

var (
	// ErrTokenizerInit is returned when the analyzer or its dictionary
	// cannot be loaded.
	ErrTokenizerInit = errors.New("failed to initialize tokenizer")
	// ErrTokenization is returned when a sentence cannot be analyzed.
	ErrTokenization = errors.New("tokenization failed")
)

// Unknown fills grammatical fields the dictionary does not provide.
const Unknown = "*"

// Token is one morpheme. Only Surface is interpreted by this module; the
// remaining fields are passed through to callers unchanged.
type Token struct {
	Surface         string `json:"surface"`
	PosMajor        string `json:"pos_major"`
	PosSub1         string `json:"pos_sub1"`
	PosSub2         string `json:"pos_sub2"`
	PosSub3         string `json:"pos_sub3"`
	ConjugationType string `json:"conjugation_type"`
	ConjugationForm string `json:"conjugation_form"`
	BaseForm        string `json:"base_form"`
	Reading         string `json:"reading"`
	Pronunciation   string `json:"pronunciation"`
}

// Tokenizer splits text into tokens.
type Tokenizer interface {
	Tokenize(text string) ([]Token, error)
}

// FromFeatures builds a Token from an IPADIC feature row:
// POS, sub1, sub2, sub3, conjugation type, conjugation form, base form,
// reading, pronunciation. Missing trailing fields become Unknown.
func FromFeatures(surface string, features []string) Token {
	get := func(i int) string {
		if i < len(features) && features[i] != "" {
			return features[i]
		}
		return Unknown
	}
	return Token{
		Surface:         surface,
		PosMajor:        get(0),
		PosSub1:         get(1),
		PosSub2:         get(2),
		PosSub3:         get(3),
		ConjugationType: get(4),
		ConjugationForm: get(5),
		BaseForm:        get(6),
		Reading:         get(7),
		Pronunciation:   get(8),
	}
}

// Surfaces returns the surface strings of tokens in order.
func Surfaces(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Surface
	}
	return out
}
