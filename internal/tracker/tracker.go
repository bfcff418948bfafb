// Package tracker maps playback-position events onto the token that is
// currently being spoken.
package tracker

import (
	"sync/atomic"

	"github.com/example/kumou/internal/align"
)

// EventKind distinguishes position updates from the end of an utterance.
type EventKind int

const (
	EventPosition EventKind = iota
	EventTerminal
)

// Event is one playback notification. CharIndex is a code-point offset and
// is only meaningful for EventPosition.
type Event struct {
	Kind      EventKind
	CharIndex int
}

// Position returns a position event at the given code-point offset.
func Position(charIndex int) Event {
	return Event{Kind: EventPosition, CharIndex: charIndex}
}

// Terminal returns the event that ends an utterance (end of speech or error).
func Terminal() Event {
	return Event{Kind: EventTerminal}
}

// none is the stored value for "no token highlighted".
const none = -1

// TokenAt returns the token index for a code-point offset. The first
// interval containing charIndex wins. An offset at or past the start of the
// last interval maps to the last token, since trailing punctuation and
// whitespace are reported by speech engines but not covered by any token.
// Anything else falls in a gap and maps to no token.
func TokenAt(intervals []align.Interval, charIndex int) (int, bool) {
	for _, iv := range intervals {
		if iv.Contains(charIndex) {
			return iv.TokenIndex, true
		}
	}
	if n := len(intervals); n > 0 && charIndex >= intervals[n-1].Start {
		return intervals[n-1].TokenIndex, true
	}
	return 0, false
}

// Tracker holds the highlight state for one utterance. Apply must only be
// called from a single goroutine; Current may be called from any.
type Tracker struct {
	intervals []align.Interval
	current   atomic.Int64
}

// New returns a Tracker over a fixed interval list with nothing highlighted.
func New(intervals []align.Interval) *Tracker {
	t := &Tracker{intervals: append([]align.Interval(nil), intervals...)}
	t.current.Store(none)
	return t
}

// Apply updates the highlight for ev and reports whether it changed.
func (t *Tracker) Apply(ev Event) bool {
	next := int64(none)
	if ev.Kind == EventPosition {
		if idx, ok := TokenAt(t.intervals, ev.CharIndex); ok {
			next = int64(idx)
		}
	}
	return t.current.Swap(next) != next
}

// Current returns the highlighted token index, if any.
func (t *Tracker) Current() (int, bool) {
	v := t.current.Load()
	if v == none {
		return 0, false
	}
	return int(v), true
}

// Intervals returns a copy of the interval list the tracker scans.
func (t *Tracker) Intervals() []align.Interval {
	return append([]align.Interval(nil), t.intervals...)
}
