package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/kumou/internal/session"
)

// highlight is the payload of a highlight event. Token is null when no
// token is being spoken.
type highlight struct {
	Token *int `json:"token"`
}

// endEvent closes a stream. Reason is set when the stream was cut short.
type endEvent struct {
	Reason string `json:"reason,omitempty"`
}

// handleSpeak analyzes ?text=, speaks it and streams the highlighted token as
// server-sent events: one "analysis" event with the Sentence, a "highlight"
// event per change and a final "end" event. A stream cut short by the
// request timeout still ends with a null highlight and "end".
func (h *handler) handleSpeak(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.opts.engine == nil {
		writeError(w, http.StatusNotImplemented, "speech engine not configured")
		return
	}

	input := r.URL.Query().Get("text")
	if !h.checkText(w, input) {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sentence, err := h.analyzer.Analyze(input)
	if err != nil {
		h.writeAnalyzeError(w, r, input, err)
		return
	}

	// Acquire a worker slot, honouring context cancellation while waiting.
	if h.sem != nil {
		select {
		case h.sem <- struct{}{}:
		case <-r.Context().Done():
			writeError(w, http.StatusServiceUnavailable, "request cancelled while waiting for worker")
			return
		}
		defer func() { <-h.sem }()
	}

	engine, err := h.opts.engine()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if h.opts.requestTimeout > 0 {
		ctx, cancel = context.WithTimeout(r.Context(), h.opts.requestTimeout)
	} else {
		ctx, cancel = context.WithCancel(r.Context())
	}
	defer cancel()

	changes := make(chan highlight, 16)
	onChange := func(idx int, ok bool) {
		hl := highlight{}
		if ok {
			hl.Token = &idx
		}
		select {
		case changes <- hl:
		case <-ctx.Done():
		}
	}

	opts := append([]session.Option{}, h.opts.sessionOpts...)
	opts = append(opts, session.WithLogger(h.log), session.WithOnChange(onChange))
	player := session.New(engine, opts...)

	start := time.Now()
	if err := player.Start(ctx, sentence.Text, sentence.Intervals); err != nil {
		h.log.ErrorContext(r.Context(), "speak failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// The loop may be blocked in onChange; cancel first so Stop can join it.
	defer func() {
		cancel()
		player.Stop()
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeEvent(w, "analysis", sentence)
	flusher.Flush()

	changed := 0
	cleared := true
	emit := func(hl highlight) {
		writeEvent(w, "highlight", hl)
		cleared = hl.Token == nil
		changed++
	}
	drain := func() {
		for {
			select {
			case hl := <-changes:
				emit(hl)
			default:
				return
			}
		}
	}

	done := player.Done()
	for {
		select {
		case hl := <-changes:
			emit(hl)
			flusher.Flush()
		case <-done:
			drain()
			writeEvent(w, "end", endEvent{})
			flusher.Flush()
			h.log.InfoContext(r.Context(), "speak complete",
				slog.Int("text_len", len(sentence.Text)),
				slog.Int("tokens", len(sentence.Tokens)),
				slog.Int("changes", changed),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
			return
		case <-ctx.Done():
			// Leave the client with no token highlighted. Writes fail
			// silently when the client has already gone.
			drain()
			if !cleared {
				emit(highlight{})
			}
			writeEvent(w, "end", endEvent{Reason: ctx.Err().Error()})
			flusher.Flush()
			h.log.WarnContext(r.Context(), "speak stream ended early",
				slog.Int("changes", changed),
				slog.String("error", ctx.Err().Error()),
			)
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, name string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		data = []byte("null")
	}
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
}
