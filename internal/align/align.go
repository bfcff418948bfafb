// Package align maps tokenizer surface strings back onto code-point
// intervals of the sentence they were produced from.
//
// Offsets are counted in code points (runes), never bytes, because the
// speech engines report playback positions in characters.
package align

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Interval is a half-open [Start, End) code-point range covered by the
// token at TokenIndex.
type Interval struct {
	Start      int `json:"start"`
	End        int `json:"end"`
	TokenIndex int `json:"token_index"`
}

// Len returns the number of code points the interval spans.
func (iv Interval) Len() int { return iv.End - iv.Start }

// Contains reports whether the code-point offset i lies inside the interval.
func (iv Interval) Contains(i int) bool { return iv.Start <= i && i < iv.End }

// FallbackReason classifies why a surface could not be located verbatim.
type FallbackReason string

const (
	// ReasonNormalized means the surface occurs in the remaining text once
	// both sides are NFKC folded (width or compatibility variants).
	ReasonNormalized FallbackReason = "normalized"
	// ReasonMissing means the surface does not occur even after folding.
	ReasonMissing FallbackReason = "missing"
)

// Fallback records a surface that was placed at the cursor instead of at an
// exact match.
type Fallback struct {
	TokenIndex int            `json:"token_index"`
	Surface    string         `json:"surface"`
	Offset     int            `json:"offset"`
	Reason     FallbackReason `json:"reason"`
}

// Report is the result of AlignReport.
type Report struct {
	Intervals []Interval
	Fallbacks []Fallback
}

// Align returns one interval per surface, in order. It never fails: a
// surface that cannot be found at or after the cursor is laid down at the
// cursor and the cursor advances by its length.
func Align(sentence string, surfaces []string) []Interval {
	return AlignReport(sentence, surfaces).Intervals
}

// AlignReport is Align plus a record of every surface that took the
// fallback path.
func AlignReport(sentence string, surfaces []string) Report {
	text := []rune(sentence)
	rep := Report{Intervals: make([]Interval, 0, len(surfaces))}

	pos := 0
	for i, surface := range surfaces {
		surf := []rune(surface)
		n := len(surf)

		if s := indexFrom(text, surf, pos); s >= 0 {
			rep.Intervals = append(rep.Intervals, Interval{Start: s, End: s + n, TokenIndex: i})
			pos = s + n
			continue
		}

		rep.Intervals = append(rep.Intervals, Interval{Start: pos, End: pos + n, TokenIndex: i})
		rep.Fallbacks = append(rep.Fallbacks, Fallback{
			TokenIndex: i,
			Surface:    surface,
			Offset:     pos,
			Reason:     classify(text, surface, pos),
		})
		pos += n
	}

	return rep
}

// Slice returns the part of sentence covered by iv, clamped to the text.
func Slice(sentence string, iv Interval) string {
	text := []rune(sentence)
	start := min(max(iv.Start, 0), len(text))
	end := min(max(iv.End, start), len(text))
	return string(text[start:end])
}

// indexFrom returns the first offset >= from at which needle occurs in
// haystack as a contiguous run, or -1.
func indexFrom(haystack, needle []rune, from int) int {
	n := len(needle)
	for s := from; s+n <= len(haystack); s++ {
		if runesEqual(haystack[s:s+n], needle) {
			return s
		}
	}
	return -1
}

func runesEqual(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func classify(text []rune, surface string, pos int) FallbackReason {
	if pos >= len(text) {
		return ReasonMissing
	}
	rest := norm.NFKC.String(string(text[pos:]))
	if strings.Contains(rest, norm.NFKC.String(surface)) {
		return ReasonNormalized
	}
	return ReasonMissing
}
