package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/kumou/internal/align"
	"github.com/example/kumou/internal/config"
	"github.com/example/kumou/internal/speech"
	"github.com/example/kumou/internal/testutil"
)

// intervals for "今日は晴れ" tokenized as 今日 / は / 晴れ.
var sentenceIntervals = []align.Interval{
	{Start: 0, End: 2, TokenIndex: 0},
	{Start: 2, End: 3, TokenIndex: 1},
	{Start: 3, End: 5, TokenIndex: 2},
}

// fakeEngine hands out channels the test writes to directly.
type fakeEngine struct {
	mu      sync.Mutex
	chans   []chan speech.Event
	cancels int
	err     error
}

func (f *fakeEngine) Speak(_ context.Context, _ string) (<-chan speech.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan speech.Event, 8)
	f.chans = append(f.chans, ch)
	return ch, nil
}

func (f *fakeEngine) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
}

func (f *fakeEngine) utterance(i int) chan speech.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chans[i]
}

func (f *fakeEngine) cancelCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancels
}

// eventually polls cond until it holds or two seconds pass.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func highlighted(p *Player, want int) func() bool {
	return func() bool {
		idx, ok := p.Current()
		return ok && idx == want
	}
}

func waitDone(t *testing.T, p *Player) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("utterance did not finish")
	}
}

// recorder collects onChange notifications.
type recorder struct {
	mu   sync.Mutex
	seen []int // -1 for none
}

func (r *recorder) onChange(idx int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !ok {
		idx = -1
	}
	r.seen = append(r.seen, idx)
}

func (r *recorder) values() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.seen...)
}

func TestPlayer_TracksPacedEngine(t *testing.T) {
	for _, delivery := range []string{DeliveryPush, DeliveryPoll} {
		t.Run(delivery, func(t *testing.T) {
			var rec recorder
			p := New(speech.NewPacedInterval(5*time.Millisecond),
				WithDelivery(delivery),
				WithPollInterval(time.Millisecond),
				WithOnChange(rec.onChange),
			)

			if err := p.Start(context.Background(), "今日は晴れ", sentenceIntervals); err != nil {
				t.Fatalf("Start: %v", err)
			}
			waitDone(t, p)

			if idx, ok := p.Current(); ok {
				t.Errorf("after end highlighted %d, want none", idx)
			}

			seen := rec.values()
			if len(seen) == 0 || seen[len(seen)-1] != -1 {
				t.Fatalf("changes %v must end with none", seen)
			}
			for i := 1; i < len(seen)-1; i++ {
				if seen[i] < seen[i-1] {
					t.Errorf("highlight moved backwards: %v", seen)
				}
			}
			if delivery == DeliveryPush && len(seen) != 4 {
				t.Errorf("push changes = %v, want [0 1 2 -1]", seen)
			}
		})
	}
}

func TestPlayer_PositionAndTerminal(t *testing.T) {
	eng := &fakeEngine{}
	p := New(eng)

	if err := p.Start(context.Background(), "今日は晴れ", sentenceIntervals); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ch := eng.utterance(0)

	ch <- speech.Boundary(1)
	eventually(t, "token 0", highlighted(p, 0))

	ch <- speech.Boundary(6)
	eventually(t, "overflow to last token", highlighted(p, 2))

	ch <- speech.Failed(errors.New("synthesis-failed"))
	waitDone(t, p)
	if idx, ok := p.Current(); ok {
		t.Errorf("after error highlighted %d, want none", idx)
	}
}

func TestPlayer_RestartLeavesOneLoop(t *testing.T) {
	eng := &fakeEngine{}
	p := New(eng)

	if err := p.Start(context.Background(), "今日は晴れ", sentenceIntervals); err != nil {
		t.Fatalf("Start: %v", err)
	}
	first := eng.utterance(0)
	first <- speech.Boundary(3)
	eventually(t, "token 2", highlighted(p, 2))

	other := []align.Interval{{Start: 0, End: 1, TokenIndex: 0}, {Start: 4, End: 6, TokenIndex: 1}}
	if err := p.Start(context.Background(), "雨 です", other); err != nil {
		t.Fatalf("second Start: %v", err)
	}

	if n := p.loops.Load(); n != 1 {
		t.Fatalf("live loops = %d, want 1", n)
	}
	if eng.cancelCount() != 1 {
		t.Errorf("engine cancels = %d, want 1", eng.cancelCount())
	}
	if idx, ok := p.Current(); ok {
		t.Errorf("new utterance starts highlighted at %d, want none", idx)
	}

	// A late event from the first utterance must not reach the new tracker.
	first <- speech.Boundary(0)
	time.Sleep(10 * time.Millisecond)
	if idx, ok := p.Current(); ok {
		t.Errorf("stale event highlighted %d", idx)
	}

	second := eng.utterance(1)
	second <- speech.Boundary(2)
	time.Sleep(10 * time.Millisecond)
	if idx, ok := p.Current(); ok {
		t.Errorf("gap position highlighted %d, want none", idx)
	}
	second <- speech.Boundary(4)
	eventually(t, "second sentence token 1", highlighted(p, 1))

	p.Stop()
	if n := p.loops.Load(); n != 0 {
		t.Errorf("live loops after Stop = %d, want 0", n)
	}
}

func TestPlayer_StopClearsHighlight(t *testing.T) {
	eng := &fakeEngine{}
	p := New(eng)

	if err := p.Start(context.Background(), "今日は晴れ", sentenceIntervals); err != nil {
		t.Fatalf("Start: %v", err)
	}
	eng.utterance(0) <- speech.Boundary(0)
	eventually(t, "token 0", highlighted(p, 0))

	p.Stop()
	if idx, ok := p.Current(); ok {
		t.Errorf("after Stop highlighted %d, want none", idx)
	}
	if eng.cancelCount() != 1 {
		t.Errorf("engine cancels = %d, want 1", eng.cancelCount())
	}

	// Stop without an utterance is a no-op.
	p.Stop()
	select {
	case <-p.Done():
	default:
		t.Error("Done must be closed when idle")
	}
}

func TestPlayer_ClosedChannelIsTerminal(t *testing.T) {
	eng := &fakeEngine{}
	p := New(eng)

	if err := p.Start(context.Background(), "今日は晴れ", sentenceIntervals); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ch := eng.utterance(0)
	ch <- speech.Boundary(2)
	eventually(t, "token 1", highlighted(p, 1))
	close(ch)

	waitDone(t, p)
	if _, ok := p.Current(); ok {
		t.Error("closed channel left a highlight")
	}
}

func TestPlayer_IdleTimeout(t *testing.T) {
	eng := &fakeEngine{}
	p := New(eng, WithIdleTimeout(20*time.Millisecond))

	if err := p.Start(context.Background(), "今日は晴れ", sentenceIntervals); err != nil {
		t.Fatalf("Start: %v", err)
	}
	eng.utterance(0) <- speech.Boundary(0)
	eventually(t, "token 0", highlighted(p, 0))

	waitDone(t, p)
	if _, ok := p.Current(); ok {
		t.Error("idle timeout left a highlight")
	}
	if eng.cancelCount() != 1 {
		t.Errorf("engine cancels = %d, want 1", eng.cancelCount())
	}
}

func TestPlayer_IdleTimeoutWaitsForSynthesis(t *testing.T) {
	exe := testutil.FakePocketTTS(t, 200*time.Millisecond, 300*time.Millisecond)

	for _, delivery := range []string{DeliveryPush, DeliveryPoll} {
		t.Run(delivery, func(t *testing.T) {
			var rec recorder
			p := New(speech.NewPocket(speech.PocketOptions{ExecutablePath: exe}),
				WithDelivery(delivery),
				WithPollInterval(time.Millisecond),
				WithIdleTimeout(150*time.Millisecond),
				WithOnChange(rec.onChange),
			)

			if err := p.Start(context.Background(), "今日は晴れ", sentenceIntervals); err != nil {
				t.Fatalf("Start: %v", err)
			}
			waitDone(t, p)

			seen := rec.values()
			if len(seen) < 2 || seen[0] != 0 || seen[len(seen)-1] != -1 {
				t.Fatalf("changes = %v, want highlights from token 0 ending with none", seen)
			}
			if delivery == DeliveryPush && len(seen) != 4 {
				t.Errorf("push changes = %v, want [0 1 2 -1]", seen)
			}
		})
	}
}

func TestPlayer_IdleTimeoutResumesAfterSynthesis(t *testing.T) {
	eng := &fakeEngine{}
	p := New(eng, WithIdleTimeout(30*time.Millisecond))

	if err := p.Start(context.Background(), "今日は晴れ", sentenceIntervals); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ch := eng.utterance(0)
	ch <- speech.Synthesizing()

	time.Sleep(80 * time.Millisecond)
	select {
	case <-p.Done():
		t.Fatal("idle timeout fired while the engine was synthesizing")
	default:
	}

	ch <- speech.Boundary(0)
	eventually(t, "token 0", highlighted(p, 0))

	// Once boundaries flow, silence counts again.
	waitDone(t, p)
	if eng.cancelCount() != 1 {
		t.Errorf("engine cancels = %d, want 1", eng.cancelCount())
	}
}

func TestPlayer_ContextCancelEndsLoop(t *testing.T) {
	eng := &fakeEngine{}
	p := New(eng)

	ctx, cancel := context.WithCancel(context.Background())
	if err := p.Start(ctx, "今日は晴れ", sentenceIntervals); err != nil {
		t.Fatalf("Start: %v", err)
	}
	eng.utterance(0) <- speech.Boundary(4)
	eventually(t, "token 2", highlighted(p, 2))

	cancel()
	waitDone(t, p)
	if _, ok := p.Current(); ok {
		t.Error("cancelled context left a highlight")
	}
}

func TestPlayer_SpeakError(t *testing.T) {
	eng := &fakeEngine{err: errors.New("engine offline")}
	p := New(eng)

	err := p.Start(context.Background(), "今日", sentenceIntervals)
	if err == nil {
		t.Fatal("expected error from Start")
	}
	if p.loops.Load() != 0 {
		t.Error("failed Start left a loop running")
	}
	if _, ok := p.Current(); ok {
		t.Error("failed Start left a highlight")
	}
}

func TestNormalizeDelivery(t *testing.T) {
	for in, want := range map[string]string{"": DeliveryPush, "push": DeliveryPush, "poll": DeliveryPoll} {
		got, err := NormalizeDelivery(in)
		if err != nil || got != want {
			t.Errorf("NormalizeDelivery(%q) = (%q, %v), want %q", in, got, err, want)
		}
	}
	if _, err := NormalizeDelivery("carrier-pigeon"); err == nil {
		t.Error("expected error for unknown delivery")
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig().TTS
	cfg.Delivery = DeliveryPoll
	cfg.PollIntervalMS = 5
	cfg.IdleTimeoutSec = 0

	fns, err := OptionsFromConfig(cfg)
	if err != nil {
		t.Fatalf("OptionsFromConfig: %v", err)
	}
	opts := defaultOptions()
	for _, fn := range fns {
		fn(&opts)
	}
	if opts.delivery != DeliveryPoll {
		t.Errorf("delivery = %q, want poll", opts.delivery)
	}
	if opts.pollInterval != 5*time.Millisecond {
		t.Errorf("poll interval = %v, want 5ms", opts.pollInterval)
	}
	if opts.idleTimeout != 0 {
		t.Errorf("idle timeout = %v, want disabled", opts.idleTimeout)
	}

	cfg.Delivery = "smoke-signals"
	if _, err := OptionsFromConfig(cfg); err == nil {
		t.Error("expected error for unknown delivery")
	}
}
