// Package speech is the boundary to text-to-speech engines. An engine speaks
// one utterance at a time and reports progress as a stream of character
// boundary events that always ends with exactly one End or Error.
package speech

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode"

	"github.com/example/kumou/internal/tracker"
)

// ErrInterrupted is reported when an utterance is cancelled before it ends.
var ErrInterrupted = errors.New("utterance interrupted")

// EventKind identifies an engine notification.
type EventKind int

const (
	EventBoundary EventKind = iota
	EventEnd
	EventError
	// EventSynthesizing reports that the engine is still producing audio and
	// no boundary is due yet.
	EventSynthesizing
)

func (k EventKind) String() string {
	switch k {
	case EventBoundary:
		return "boundary"
	case EventEnd:
		return "end"
	case EventError:
		return "error"
	case EventSynthesizing:
		return "synthesizing"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is one engine notification. CharIndex is a code-point offset into
// the spoken text and is set for boundary events; Err is set for errors.
type Event struct {
	Kind      EventKind
	CharIndex int
	Err       error
}

func Boundary(charIndex int) Event { return Event{Kind: EventBoundary, CharIndex: charIndex} }
func End() Event                   { return Event{Kind: EventEnd} }
func Failed(err error) Event       { return Event{Kind: EventError, Err: err} }
func Synthesizing() Event          { return Event{Kind: EventSynthesizing} }

// Terminal reports whether the event ends the utterance.
func (e Event) Terminal() bool { return e.Kind == EventEnd || e.Kind == EventError }

// ToTracker maps an engine event onto the tracker's vocabulary. End and
// Error both become Terminal. Synthesizing carries no position and must not
// be applied.
func (e Event) ToTracker() tracker.Event {
	if e.Terminal() {
		return tracker.Terminal()
	}
	return tracker.Position(e.CharIndex)
}

// Engine speaks text. Speak returns a channel that yields boundary events
// followed by one terminal event and is then closed; a closed channel
// without a terminal event must be treated as terminal too. Starting a new
// utterance or calling Cancel interrupts the one in flight.
type Engine interface {
	Speak(ctx context.Context, text string) (<-chan Event, error)
	Cancel()
}

// utterances tracks the in-flight utterance of an engine so that a new
// Speak or a Cancel interrupts it.
type utterances struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

// begin cancels any in-flight utterance and derives a context for the next.
func (u *utterances) begin(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)

	u.mu.Lock()
	prev := u.cancel
	u.cancel = cancel
	u.mu.Unlock()

	if prev != nil {
		prev()
	}
	return ctx
}

// Cancel interrupts the in-flight utterance, if any.
func (u *utterances) Cancel() {
	u.mu.Lock()
	cancel := u.cancel
	u.cancel = nil
	u.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// pace emits a boundary at every non-space code point of text, holding each
// code point for perRune, then sends End. On cancellation it makes a
// best-effort attempt to deliver Error(ErrInterrupted) without blocking.
func pace(ctx context.Context, text string, perRune time.Duration, out chan<- Event) {
	for i, r := range []rune(text) {
		if !unicode.IsSpace(r) {
			select {
			case out <- Boundary(i):
			case <-ctx.Done():
				interrupt(out)
				return
			}
		}

		if !sleep(ctx, perRune) {
			interrupt(out)
			return
		}
	}

	select {
	case out <- End():
	case <-ctx.Done():
		interrupt(out)
	}
}

func interrupt(out chan<- Event) {
	select {
	case out <- Failed(ErrInterrupted):
	default:
	}
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
