package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
var ValidProviderNames = map[string][]string{
	"stt":       {"whisper", "whisper-native", "openai"},
	"translate": {"deepl", "openai", "anyllm"},
}

// Environment variables that override their config file counterparts, so
// secrets can stay out of checked-in config files.
const (
	EnvStoreURL        = "KIKITORI_STORE_URL"
	EnvStoreAPIKey     = "KIKITORI_STORE_API_KEY"
	EnvSTTAPIKey       = "KIKITORI_STT_API_KEY"
	EnvTranslateAPIKey = "KIKITORI_TRANSLATE_API_KEY"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies environment variable
// overrides and validates the result. Useful in tests where configs are
// constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvStoreURL); v != "" {
		cfg.Store.URL = v
	}
	if v := os.Getenv(EnvStoreAPIKey); v != "" {
		cfg.Store.APIKey = v
	}
	if v := os.Getenv(EnvSTTAPIKey); v != "" {
		cfg.Providers.STT.APIKey = v
	}
	if v := os.Getenv(EnvTranslateAPIKey); v != "" {
		cfg.Providers.Translate.APIKey = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.UploadDir == "" {
		cfg.Server.UploadDir = "uploads"
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = BackendPostgREST
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.MaxUploadBytes < 0 {
		errs = append(errs, fmt.Errorf("server.max_upload_bytes must not be negative"))
	}

	if !cfg.Store.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("store.backend %q is invalid; valid values: postgrest, postgres", cfg.Store.Backend))
	}
	switch cfg.Store.Backend {
	case BackendPostgREST:
		if cfg.Store.URL == "" {
			errs = append(errs, fmt.Errorf("store.url is required for the postgrest backend"))
		}
		if cfg.Store.APIKey == "" {
			errs = append(errs, fmt.Errorf("store.api_key is required for the postgrest backend"))
		}
	case BackendPostgres:
		if cfg.Store.PostgresDSN == "" {
			errs = append(errs, fmt.Errorf("store.postgres_dsn is required for the postgres backend"))
		}
	}

	if cfg.Providers.STT.Name == "" {
		errs = append(errs, fmt.Errorf("providers.stt.name is required"))
	}
	if cfg.Providers.Translate.Name == "" {
		errs = append(errs, fmt.Errorf("providers.translate.name is required"))
	}
	errs = append(errs, validateProviderName("stt", cfg.Providers.STT.Name)...)
	errs = append(errs, validateProviderName("translate", cfg.Providers.Translate.Name)...)
	errs = append(errs, validateProviderName("stt", cfg.Providers.STTFallback.Name)...)
	errs = append(errs, validateProviderName("translate", cfg.Providers.TranslateFallback.Name)...)

	return errors.Join(errs...)
}

// validateProviderName returns an error if name is non-empty and not a known
// implementation for the given kind.
func validateProviderName(kind, name string) []error {
	if name == "" {
		return nil
	}
	known := ValidProviderNames[kind]
	if slices.Contains(known, name) {
		return nil
	}
	return []error{fmt.Errorf("providers.%s.name %q is unknown; valid values: %v", kind, name, known)}
}
