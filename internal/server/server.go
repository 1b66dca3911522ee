// Package server exposes the Kikitori HTTP API: audio upload with
// transcription, translation and vocabulary extraction, plus account
// registration, login and save/load of study material.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kikitori/kikitori/internal/health"
	"github.com/kikitori/kikitori/internal/observe"
	"github.com/kikitori/kikitori/internal/store"
	"github.com/kikitori/kikitori/internal/vocab"
	"github.com/kikitori/kikitori/pkg/provider/stt"
	"github.com/kikitori/kikitori/pkg/provider/translate"
)

const defaultMaxUploadBytes = 32 << 20

// Tokenizer produces deduplicated base-form tokens from Japanese text.
type Tokenizer interface {
	Tokenize(text string) []string
}

// Classifier files tokens into JLPT tiers.
type Classifier interface {
	Classify(ctx context.Context, tokens []string) vocab.Result
}

// Config holds the server's runtime settings.
type Config struct {
	// ListenAddr is the TCP address to listen on.
	ListenAddr string

	// UploadDir is where incoming audio files are written. Created if it
	// does not exist.
	UploadDir string

	// MaxUploadBytes caps the accepted audio file size. Zero means 32 MiB.
	MaxUploadBytes int64

	// Language is the spoken language passed to the transcriber. Defaults
	// to "ja".
	Language string
}

// Server wires the providers, the vocabulary pipeline and the row store into
// an HTTP API.
type Server struct {
	cfg        Config
	stt        stt.Provider
	translator translate.Provider
	tokenizer  Tokenizer
	classifier Classifier
	store      store.Store
	metrics    *observe.Metrics

	httpSrv *http.Server
}

// New creates a Server. The upload directory is created on demand.
func New(cfg Config, sttProvider stt.Provider, translator translate.Provider,
	tokenizer Tokenizer, classifier Classifier, st store.Store, metrics *observe.Metrics) (*Server, error) {

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "uploads"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.Language == "" {
		cfg.Language = "ja"
	}
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("server: create upload dir %q: %w", cfg.UploadDir, err)
	}

	s := &Server{
		cfg:        cfg,
		stt:        sttProvider,
		translator: translator,
		tokenizer:  tokenizer,
		classifier: classifier,
		store:      st,
		metrics:    metrics,
	}
	s.httpSrv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           observe.Middleware(metrics)(s.routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// routes builds the request multiplexer.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /flashcard", s.handleFlashcard)

	mux.HandleFunc("POST /uploads", s.handleUpload)
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /save_user_data", s.handleSaveUserData)
	mux.HandleFunc("GET /get_user_data/{user_id}", s.handleGetUserData)

	hh := health.New(
		health.StoreCheck(s.store),
		health.UploadDirCheck(s.cfg.UploadDir),
	)
	hh.Register(mux)

	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

// Run starts the HTTP listener and blocks until ctx is cancelled or the
// listener fails.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", s.cfg.ListenAddr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server: listen: %w", err)
	}
}

// Shutdown drains in-flight requests and closes the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
