// Package config provides the configuration schema and loader for the
// Kikitori server.
package config

// LogLevel controls log verbosity for the Kikitori server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// StoreBackend selects the row store implementation.
type StoreBackend string

const (
	// BackendPostgREST talks to a PostgREST data API such as Supabase.
	BackendPostgREST StoreBackend = "postgrest"

	// BackendPostgres connects to PostgreSQL directly.
	BackendPostgres StoreBackend = "postgres"
)

// IsValid reports whether b is a recognised store backend.
func (b StoreBackend) IsValid() bool {
	return b == BackendPostgREST || b == BackendPostgres
}

// Config is the root configuration structure for Kikitori.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Providers ProvidersConfig `yaml:"providers"`
}

// ServerConfig holds network, logging and upload settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// UploadDir is where incoming audio files are written. Defaults to
	// "uploads" relative to the working directory.
	UploadDir string `yaml:"upload_dir"`

	// MaxUploadBytes caps the accepted audio file size. Zero means the
	// default of 32 MiB.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

// StoreConfig selects and configures the row store backend.
type StoreConfig struct {
	// Backend is "postgrest" or "postgres".
	Backend StoreBackend `yaml:"backend"`

	// URL is the PostgREST base URL (e.g., "https://xyz.supabase.co/rest/v1")
	// when Backend is "postgrest".
	URL string `yaml:"url"`

	// APIKey authenticates against the PostgREST endpoint.
	APIKey string `yaml:"api_key"`

	// PostgresDSN is the connection string when Backend is "postgres".
	PostgresDSN string `yaml:"postgres_dsn"`
}

// ProvidersConfig declares which provider implementation to use for each
// pipeline stage.
type ProvidersConfig struct {
	STT       ProviderEntry `yaml:"stt"`
	Translate ProviderEntry `yaml:"translate"`

	// STTFallback and TranslateFallback name optional secondary providers
	// used when the primary's circuit opens. Empty means no fallback.
	STTFallback       ProviderEntry `yaml:"stt_fallback"`
	TranslateFallback ProviderEntry `yaml:"translate_fallback"`
}

// ProviderEntry is the common configuration block shared by all provider
// kinds.
type ProviderEntry struct {
	// Name selects the provider implementation (e.g., "openai", "deepl").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "whisper-1",
	// "gpt-4o-mini"). For "whisper-native" this is the GGML model file path.
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by
	// the standard fields above.
	Options map[string]any `yaml:"options"`
}
