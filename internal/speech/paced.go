package speech

import (
	"context"
	"time"
)

// DefaultRate is the speaking rate of the paced engine in characters per
// second, roughly a Japanese voice at 0.9x.
const DefaultRate = 8.0

// Paced is an engine that produces no audio and reports boundaries at a
// fixed speaking rate. It stands in for a real synthesizer in the CLI demo
// and in tests.
type Paced struct {
	perRune time.Duration
	utterances
}

// NewPaced returns a Paced engine speaking rate characters per second.
// A non-positive rate selects DefaultRate.
func NewPaced(rate float64) *Paced {
	if rate <= 0 {
		rate = DefaultRate
	}
	return &Paced{perRune: time.Duration(float64(time.Second) / rate)}
}

// NewPacedInterval returns a Paced engine holding each character for d.
func NewPacedInterval(d time.Duration) *Paced {
	return &Paced{perRune: d}
}

func (p *Paced) Speak(ctx context.Context, text string) (<-chan Event, error) {
	ctx = p.begin(ctx)

	out := make(chan Event, 1)
	go func() {
		defer close(out)
		pace(ctx, text, p.perRune, out)
	}()
	return out, nil
}
