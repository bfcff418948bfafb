package speech

import (
	"context"
	"sync"
	"time"
)

// DefaultPollInterval is how often Poll samples a Latch.
const DefaultPollInterval = 50 * time.Millisecond

// Latch is a single-slot mailbox for engine events. Record overwrites the
// slot; Take reads and clears it. Once a terminal event is recorded the
// latch is closed: later records are dropped and Take keeps returning the
// terminal event.
//
// A Latch belongs to one utterance. Intermediate boundaries may be lost
// between two Takes, which only delays the highlight.
type Latch struct {
	mu       sync.Mutex
	ev       Event
	has      bool
	terminal bool
}

// Record stores ev unless the latch already holds a terminal event.
func (l *Latch) Record(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.terminal {
		return
	}
	l.ev = ev
	l.has = true
	l.terminal = ev.Terminal()
}

// Take returns the latest unread event.
func (l *Latch) Take() (Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.has {
		return Event{}, false
	}
	if !l.terminal {
		l.has = false
	}
	return l.ev, true
}

// Pump records every event from events into l until the channel closes or
// ctx ends. A channel that closes without a terminal event records End.
func Pump(ctx context.Context, events <-chan Event, l *Latch) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				l.Record(End())
				return
			}
			l.Record(ev)
			if ev.Terminal() {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// Poll samples l every interval and forwards what it finds. The returned
// channel closes after the first terminal event or when ctx ends, so a
// position recorded after the terminal event is never delivered.
func Poll(ctx context.Context, l *Latch, interval time.Duration) <-chan Event {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	out := make(chan Event)
	go func() {
		defer close(out)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}

			ev, ok := l.Take()
			if !ok {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
			if ev.Terminal() {
				return
			}
		}
	}()
	return out
}
