// Command kikitori is the main entry point for the Kikitori language
// learning server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/kikitori/kikitori/internal/config"
	"github.com/kikitori/kikitori/internal/observe"
	"github.com/kikitori/kikitori/internal/resilience"
	"github.com/kikitori/kikitori/internal/server"
	"github.com/kikitori/kikitori/internal/store"
	"github.com/kikitori/kikitori/internal/vocab"
	"github.com/kikitori/kikitori/pkg/provider/stt"
	sttopenai "github.com/kikitori/kikitori/pkg/provider/stt/openai"
	"github.com/kikitori/kikitori/pkg/provider/stt/whisper"
	"github.com/kikitori/kikitori/pkg/provider/translate"
	"github.com/kikitori/kikitori/pkg/provider/translate/anyllm"
	"github.com/kikitori/kikitori/pkg/provider/translate/deepl"
	troai "github.com/kikitori/kikitori/pkg/provider/translate/openai"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "kikitori: config file %q not found; copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "kikitori: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("kikitori starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	st, closeStore, err := buildStore(ctx, cfg.Store)
	if err != nil {
		slog.Error("failed to build store", "err", err)
		return 1
	}
	defer closeStore()

	sttProvider, err := buildSTT(cfg.Providers)
	if err != nil {
		slog.Error("failed to build stt provider", "err", err)
		return 1
	}
	translator, err := buildTranslator(cfg.Providers)
	if err != nil {
		slog.Error("failed to build translate provider", "err", err)
		return 1
	}

	tokenizer, err := vocab.NewTokenizer()
	if err != nil {
		slog.Error("failed to build tokenizer", "err", err)
		return 1
	}
	classifier := vocab.NewClassifier(st)

	srv, err := server.New(server.Config{
		ListenAddr:     cfg.Server.ListenAddr,
		UploadDir:      cfg.Server.UploadDir,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}, sttProvider, translator, tokenizer, classifier, st, observe.DefaultMetrics())
	if err != nil {
		slog.Error("failed to initialise server", "err", err)
		return 1
	}

	slog.Info("server ready, press Ctrl+C to shut down")

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping")

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// buildStore constructs the configured row store backend. The returned close
// function releases any held connections.
func buildStore(ctx context.Context, cfg config.StoreConfig) (store.Store, func(), error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		pg := store.NewPostgresStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return pg, pool.Close, nil

	case config.BackendPostgREST:
		return store.NewPostgRESTStore(cfg.URL, cfg.APIKey), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// buildSTT constructs the primary transcription provider, wrapped in a
// failover chain when a fallback is configured.
func buildSTT(cfg config.ProvidersConfig) (stt.Provider, error) {
	primary, err := newSTTProvider(cfg.STT)
	if err != nil {
		return nil, err
	}
	if cfg.STTFallback.Name == "" {
		return primary, nil
	}

	secondary, err := newSTTProvider(cfg.STTFallback)
	if err != nil {
		return nil, err
	}
	chain := resilience.NewSTTFallback(primary, resilience.FallbackConfig{})
	chain.AddFallback(secondary)
	return chain, nil
}

func newSTTProvider(entry config.ProviderEntry) (stt.Provider, error) {
	switch entry.Name {
	case "whisper":
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.BaseURL, opts...)

	case "whisper-native":
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = optString(entry.Options, "model_path")
		}
		var opts []whisper.NativeOption
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithNativeLanguage(lang))
		}
		return whisper.NewNative(modelPath, opts...)

	case "openai":
		var opts []sttopenai.Option
		if entry.Model != "" {
			opts = append(opts, sttopenai.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, sttopenai.WithBaseURL(entry.BaseURL))
		}
		return sttopenai.New(entry.APIKey, opts...)

	default:
		return nil, fmt.Errorf("unknown stt provider %q", entry.Name)
	}
}

// buildTranslator constructs the primary translation provider, wrapped in a
// failover chain when a fallback is configured.
func buildTranslator(cfg config.ProvidersConfig) (translate.Provider, error) {
	primary, err := newTranslateProvider(cfg.Translate)
	if err != nil {
		return nil, err
	}
	if cfg.TranslateFallback.Name == "" {
		return primary, nil
	}

	secondary, err := newTranslateProvider(cfg.TranslateFallback)
	if err != nil {
		return nil, err
	}
	chain := resilience.NewTranslateFallback(primary, resilience.FallbackConfig{})
	chain.AddFallback(secondary)
	return chain, nil
}

func newTranslateProvider(entry config.ProviderEntry) (translate.Provider, error) {
	switch entry.Name {
	case "deepl":
		var opts []deepl.Option
		if entry.BaseURL != "" {
			opts = append(opts, deepl.WithBaseURL(entry.BaseURL))
		}
		if src, tgt := optString(entry.Options, "source_lang"), optString(entry.Options, "target_lang"); src != "" || tgt != "" {
			opts = append(opts, deepl.WithLanguagePair(src, tgt))
		}
		return deepl.New(entry.APIKey, opts...)

	case "openai":
		var opts []troai.Option
		if entry.Model != "" {
			opts = append(opts, troai.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, troai.WithBaseURL(entry.BaseURL))
		}
		return troai.New(entry.APIKey, opts...)

	case "anyllm":
		backend := optString(entry.Options, "backend")
		if backend == "" {
			backend = "openai"
		}
		var opts []anyllmlib.Option
		if entry.APIKey != "" {
			opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
		}
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New(backend, entry.Model, opts...)

	default:
		return nil, fmt.Errorf("unknown translate provider %q", entry.Name)
	}
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// optString extracts a string value from a provider Options map. Returns ""
// if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
