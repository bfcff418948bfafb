// Package session plays one sentence at a time through a speech engine and
// keeps the highlighted token in step with the engine's progress.
//
// A Player owns at most one utterance. Starting a new one (or calling Stop)
// cancels the engine, waits for the previous event loop to exit and only
// then installs the new sentence's tracker, so exactly one goroutine ever
// writes the highlight state and stale offsets are never applied to a new
// interval list.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/example/kumou/internal/align"
	"github.com/example/kumou/internal/config"
	"github.com/example/kumou/internal/speech"
	"github.com/example/kumou/internal/tracker"
)

// Delivery strategies for engine events.
const (
	DeliveryPush = "push"
	DeliveryPoll = "poll"
)

// DefaultIdleTimeout ends an utterance whose engine has gone quiet.
const DefaultIdleTimeout = 30 * time.Second

// ---------------------------------------------------------------------------
// Functional options
// ---------------------------------------------------------------------------

type options struct {
	delivery     string
	pollInterval time.Duration
	idleTimeout  time.Duration
	onChange     func(index int, ok bool)
	logger       *slog.Logger
}

func defaultOptions() options {
	return options{
		delivery:     DeliveryPush,
		pollInterval: speech.DefaultPollInterval,
		idleTimeout:  DefaultIdleTimeout,
		logger:       slog.Default(),
	}
}

// Option configures a Player.
type Option func(*options)

// WithDelivery selects push (consume engine events directly) or poll
// (sample a single-slot latch every poll interval).
func WithDelivery(mode string) Option {
	return func(o *options) { o.delivery = mode }
}

// WithPollInterval sets the sampling period for poll delivery.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) { o.pollInterval = d }
}

// WithIdleTimeout ends an utterance after d without engine events. The
// timer is paused while the engine reports it is synthesizing. Zero
// disables the timeout.
func WithIdleTimeout(d time.Duration) Option {
	return func(o *options) { o.idleTimeout = d }
}

// WithOnChange registers a callback invoked from the event loop whenever
// the highlighted token changes. It must not call Start or Stop.
func WithOnChange(fn func(index int, ok bool)) Option {
	return func(o *options) { o.onChange = fn }
}

// WithLogger sets the logger for session diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// NormalizeDelivery validates a delivery strategy name. Empty selects push.
func NormalizeDelivery(raw string) (string, error) {
	switch raw {
	case "", DeliveryPush:
		return DeliveryPush, nil
	case DeliveryPoll:
		return DeliveryPoll, nil
	default:
		return "", fmt.Errorf("invalid delivery %q (expected %s|%s)", raw, DeliveryPush, DeliveryPoll)
	}
}

// ---------------------------------------------------------------------------
// Player
// ---------------------------------------------------------------------------

// run is one utterance's event loop.
type run struct {
	tracker *tracker.Tracker
	cancel  context.CancelFunc
	done    chan struct{}
}

// Player speaks sentences and tracks the token being spoken.
type Player struct {
	engine speech.Engine
	opts   options
	log    *slog.Logger

	mu     sync.Mutex // serializes Start and Stop
	cur    *run
	active atomic.Pointer[run]
	loops  atomic.Int32
}

// New returns a Player driving engine.
func New(engine speech.Engine, optFns ...Option) *Player {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Player{engine: engine, opts: opts, log: opts.logger}
}

// Start stops any utterance in flight, then speaks text while tracking it
// against intervals. The event loop runs until the engine reports a
// terminal event, the idle timeout fires, ctx ends, or the next Start/Stop.
func (p *Player) Start(ctx context.Context, text string, intervals []align.Interval) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	runCtx, cancel := context.WithCancel(ctx)
	events, err := p.engine.Speak(runCtx, text)
	if err != nil {
		cancel()
		return fmt.Errorf("start utterance: %w", err)
	}

	if p.opts.delivery == DeliveryPoll {
		latch := &speech.Latch{}
		go speech.Pump(runCtx, events, latch)
		events = speech.Poll(runCtx, latch, p.opts.pollInterval)
	}

	r := &run{
		tracker: tracker.New(intervals),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	p.cur = r
	p.active.Store(r)

	p.loops.Add(1)
	go p.loop(runCtx, r, events)

	p.log.Debug("utterance started",
		slog.Int("tokens", len(intervals)),
		slog.String("delivery", p.opts.delivery),
	)
	return nil
}

// Stop cancels the utterance in flight, if any, and clears the highlight.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Player) stopLocked() {
	prev := p.cur
	if prev == nil {
		return
	}
	p.engine.Cancel()
	prev.cancel()
	<-prev.done
	p.cur = nil
	p.active.Store(nil)
}

// Current returns the token being spoken, if any.
func (p *Player) Current() (int, bool) {
	r := p.active.Load()
	if r == nil {
		return 0, false
	}
	return r.tracker.Current()
}

// Done returns a channel closed when the current utterance's loop exits.
// With no utterance it returns a closed channel.
func (p *Player) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cur == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return p.cur.done
}

func (p *Player) loop(ctx context.Context, r *run, events <-chan speech.Event) {
	defer p.loops.Add(-1)
	defer close(r.done)
	defer r.cancel()

	var idle <-chan time.Time
	var timer *time.Timer
	if p.opts.idleTimeout > 0 {
		timer = time.NewTimer(p.opts.idleTimeout)
		defer timer.Stop()
		idle = timer.C
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				p.apply(r, tracker.Terminal())
				return
			}
			if ev.Kind == speech.EventSynthesizing {
				// The engine is busy producing audio; silence is expected
				// until the first boundary.
				if timer != nil {
					timer.Stop()
				}
				continue
			}
			p.apply(r, ev.ToTracker())
			if ev.Terminal() {
				if ev.Err != nil {
					p.log.Debug("utterance ended with error", slog.String("error", ev.Err.Error()))
				}
				return
			}
			if timer != nil {
				timer.Reset(p.opts.idleTimeout)
			}
		case <-idle:
			p.log.Warn("utterance idle timeout", slog.Duration("timeout", p.opts.idleTimeout))
			p.engine.Cancel()
			p.apply(r, tracker.Terminal())
			return
		case <-ctx.Done():
			p.apply(r, tracker.Terminal())
			return
		}
	}
}

func (p *Player) apply(r *run, ev tracker.Event) {
	if !r.tracker.Apply(ev) || p.opts.onChange == nil {
		return
	}
	idx, ok := r.tracker.Current()
	p.opts.onChange(idx, ok)
}

// OptionsFromConfig translates the tts section of the configuration into
// Player options.
func OptionsFromConfig(cfg config.TTSConfig) ([]Option, error) {
	delivery, err := NormalizeDelivery(cfg.Delivery)
	if err != nil {
		return nil, err
	}

	opts := []Option{
		WithDelivery(delivery),
		WithIdleTimeout(time.Duration(cfg.IdleTimeoutSec) * time.Second),
	}
	if cfg.PollIntervalMS > 0 {
		opts = append(opts, WithPollInterval(time.Duration(cfg.PollIntervalMS)*time.Millisecond))
	}
	return opts, nil
}
