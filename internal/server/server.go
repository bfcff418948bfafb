package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/kumou/internal/analysis"
	"github.com/example/kumou/internal/config"
	"github.com/example/kumou/internal/dialogue"
	"github.com/example/kumou/internal/session"
	"github.com/example/kumou/internal/speech"
	"github.com/example/kumou/internal/text"
	"github.com/example/kumou/internal/tokenizer"
	"pkt.systems/version"
)

// ParseLogLevel converts a case-insensitive level string to slog.Level.
// An empty string returns slog.LevelInfo. Unknown strings return an error.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
	}
}

// Analyzer turns a sentence into tokens and aligned intervals.
type Analyzer interface {
	Analyze(text string) (analysis.Sentence, error)
}

// Corpus answers dialogue queries.
type Corpus interface {
	Topics() []dialogue.TopicSummary
	ByTopic(topicID uint32, page, perPage int, search string) dialogue.Page
	Get(id uint32) (dialogue.Dialogue, error)
}

// EngineFactory returns a fresh speech engine for one speak stream.
type EngineFactory func() (speech.Engine, error)

// ---------------------------------------------------------------------------
// Functional options
// ---------------------------------------------------------------------------

type options struct {
	maxTextBytes   int
	workers        int
	requestTimeout time.Duration
	logger         *slog.Logger
	corpus         Corpus
	engine         EngineFactory
	sessionOpts    []session.Option
}

func defaultOptions() options {
	return options{
		maxTextBytes:   4096,
		workers:        4,
		requestTimeout: 60 * time.Second,
		logger:         slog.Default(),
	}
}

// Option configures the HTTP handler.
type Option func(*options)

// WithMaxTextBytes sets the maximum allowed sentence length in bytes.
func WithMaxTextBytes(n int) Option {
	return func(o *options) { o.maxTextBytes = n }
}

// WithWorkers sets the maximum number of concurrent speak streams.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithRequestTimeout sets the per-request deadline.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) { o.requestTimeout = d }
}

// WithLogger sets the slog.Logger used for request logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithCorpus enables the dialogue endpoints.
func WithCorpus(c Corpus) Option {
	return func(o *options) { o.corpus = c }
}

// WithEngine enables GET /api/speak.
func WithEngine(f EngineFactory) Option {
	return func(o *options) { o.engine = f }
}

// WithSessionOptions passes options to every speak stream's Player.
func WithSessionOptions(opts ...session.Option) Option {
	return func(o *options) { o.sessionOpts = append(o.sessionOpts, opts...) }
}

// ---------------------------------------------------------------------------
// handler
// ---------------------------------------------------------------------------

type handler struct {
	analyzer Analyzer
	opts     options
	sem      chan struct{} // bounds concurrent speak streams
	log      *slog.Logger
}

// NewHandler returns an http.Handler serving /health and the /api routes.
func NewHandler(an Analyzer, optFns ...Option) http.Handler {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	h := &handler{
		analyzer: an,
		opts:     opts,
		log:      opts.logger,
	}
	if opts.workers > 0 {
		h.sem = make(chan struct{}, opts.workers)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/api/analyze", h.handleAnalyze)
	mux.HandleFunc("/api/topics", h.handleTopics)
	mux.HandleFunc("/api/dialogues_by_topic", h.handleDialoguesByTopic)
	mux.HandleFunc("/api/dialogue", h.handleDialogue)
	mux.HandleFunc("/api/speak", h.handleSpeak)
	return mux
}

// Health is the body of GET /health.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Health{Status: "ok", Version: version.Current()})
}

type analyzeRequest struct {
	Text string `json:"text"`
}

func (h *handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req analyzeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if !h.checkText(w, req.Text) {
		return
	}

	start := time.Now()
	sentence, err := h.analyzer.Analyze(req.Text)
	if err != nil {
		h.writeAnalyzeError(w, r, req.Text, err)
		return
	}

	h.log.InfoContext(r.Context(), "analysis complete",
		slog.Int("text_len", len(req.Text)),
		slog.Int("tokens", len(sentence.Tokens)),
		slog.Int("fallbacks", len(sentence.Fallbacks)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	writeJSON(w, http.StatusOK, sentence)
}

// checkText rejects empty or oversized input and reports whether to go on.
func (h *handler) checkText(w http.ResponseWriter, s string) bool {
	if strings.TrimSpace(s) == "" {
		writeError(w, http.StatusBadRequest, "text field is required")
		return false
	}
	if len(s) > h.opts.maxTextBytes {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("text exceeds maximum size of %d bytes", h.opts.maxTextBytes))
		return false
	}
	return true
}

func (h *handler) writeAnalyzeError(w http.ResponseWriter, r *http.Request, s string, err error) {
	switch {
	case errors.Is(err, text.ErrEmptyText):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, tokenizer.ErrTokenization):
		h.log.WarnContext(r.Context(), "tokenization failed",
			slog.Int("text_len", len(s)),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.log.ErrorContext(r.Context(), "analysis failed",
			slog.Int("text_len", len(s)),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *handler) handleTopics(w http.ResponseWriter, r *http.Request) {
	if !h.corpusRequest(w, r) {
		return
	}
	topics := h.opts.corpus.Topics()
	if topics == nil {
		topics = []dialogue.TopicSummary{}
	}
	writeJSON(w, http.StatusOK, topics)
}

type dialoguesByTopicRequest struct {
	TopicID uint32 `json:"topic_id"`
	Page    int    `json:"page"`
	PerPage int    `json:"per_page"`
	Search  string `json:"search"`
}

func (h *handler) handleDialoguesByTopic(w http.ResponseWriter, r *http.Request) {
	if !h.corpusRequest(w, r) {
		return
	}
	var req dialoguesByTopicRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.opts.corpus.ByTopic(req.TopicID, req.Page, req.PerPage, req.Search))
}

type dialogueRequest struct {
	DialogueID uint32 `json:"dialogue_id"`
}

func (h *handler) handleDialogue(w http.ResponseWriter, r *http.Request) {
	if !h.corpusRequest(w, r) {
		return
	}
	var req dialogueRequest
	if !decodeBody(w, r, &req) {
		return
	}

	d, err := h.opts.corpus.Get(req.DialogueID)
	if err != nil {
		if errors.Is(err, dialogue.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *handler) corpusRequest(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	if h.opts.corpus == nil {
		writeError(w, http.StatusServiceUnavailable, "dialogue corpus not loaded")
		return false
	}
	return true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.Body == http.NoBody {
		writeError(w, http.StatusBadRequest, "request body is required")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ---------------------------------------------------------------------------
// Server: wires handler into net/http.Server with graceful shutdown
// ---------------------------------------------------------------------------

// Deps are the collaborators a Server needs. Nil fields are built from the
// configuration when the server starts.
type Deps struct {
	Analyzer Analyzer
	Corpus   Corpus
	Engine   EngineFactory
}

// Server wires the HTTP handler into a net/http.Server with graceful shutdown.
type Server struct {
	cfg             config.Config
	deps            Deps
	log             *slog.Logger
	shutdownTimeout time.Duration
}

func New(cfg config.Config, deps Deps) *Server {
	shutdown := 30 * time.Second
	if cfg.Server.ShutdownTimeout > 0 {
		shutdown = time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	}
	return &Server{
		cfg:             cfg,
		deps:            deps,
		log:             slog.Default(),
		shutdownTimeout: shutdown,
	}
}

// WithShutdownTimeout overrides the graceful-shutdown drain period.
func (s *Server) WithShutdownTimeout(d time.Duration) *Server {
	s.shutdownTimeout = d
	return s
}

// Handler builds the HTTP handler, resolving any missing dependencies.
func (s *Server) Handler() (http.Handler, error) {
	deps, err := s.runtimeDeps()
	if err != nil {
		return nil, err
	}

	sessionOpts, err := session.OptionsFromConfig(s.cfg.TTS)
	if err != nil {
		return nil, err
	}

	handlerOpts := []Option{
		WithWorkers(s.cfg.Server.Workers),
		WithMaxTextBytes(s.cfg.Server.MaxTextBytes),
		WithRequestTimeout(time.Duration(s.cfg.Server.RequestTimeout) * time.Second),
		WithLogger(s.log),
		WithEngine(deps.Engine),
		WithSessionOptions(sessionOpts...),
	}
	if deps.Corpus != nil {
		handlerOpts = append(handlerOpts, WithCorpus(deps.Corpus))
	}

	return NewHandler(deps.Analyzer, handlerOpts...), nil
}

func (s *Server) Start(ctx context.Context) error {
	h, err := s.Handler()
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	s.log.Info("server listening", slog.String("addr", s.cfg.Server.ListenAddr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http listen: %w", err)
	}
}

// ProbeHTTP reports whether a kumou server answers on addr.
func ProbeHTTP(addr string) error {
	_, err := FetchHealth(addr)
	return err
}

// FetchHealth queries GET /health on addr.
func FetchHealth(addr string) (Health, error) {
	resp, err := http.Get("http://" + addr + "/health") //nolint:noctx
	if err != nil {
		return Health{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Health{}, fmt.Errorf("unexpected health status: %s", resp.Status)
	}

	var health Health
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return Health{}, fmt.Errorf("decode health response: %w", err)
	}
	if health.Status != "ok" {
		return health, fmt.Errorf("server reports status %q", health.Status)
	}
	return health, nil
}

func (s *Server) runtimeDeps() (Deps, error) {
	deps := s.deps

	if deps.Engine == nil {
		// Validate once up front so a bad engine name fails at startup.
		if _, err := config.NormalizeEngine(s.cfg.TTS.Engine); err != nil {
			return Deps{}, err
		}
		tts := s.cfg.TTS
		deps.Engine = func() (speech.Engine, error) {
			return speech.FromConfig(tts, nil, s.log)
		}
	}

	if deps.Analyzer == nil {
		tok, err := tokenizer.NewIPADIC(s.cfg.Analysis.Mode)
		if err != nil {
			return Deps{}, fmt.Errorf("initialize tokenizer: %w", err)
		}
		deps.Analyzer = analysis.New(tok, analysis.WithLogger(s.log))
	}

	if deps.Corpus == nil && s.cfg.Paths.DialogueDir != "" {
		store, err := dialogue.Load(s.cfg.Paths.DialogueDir)
		if err != nil {
			s.log.Warn("dialogue corpus unavailable",
				slog.String("dir", s.cfg.Paths.DialogueDir),
				slog.String("error", err.Error()),
			)
		} else {
			deps.Corpus = store
		}
	}

	return deps, nil
}
