// Package openai provides an STT provider backed by the OpenAI audio
// transcription API (whisper-1 and successors).
package openai

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/kikitori/kikitori/pkg/provider/stt"
)

// defaultModel is used when no model is configured.
const defaultModel = "whisper-1"

// Compile-time assertion that Provider implements stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// Provider implements stt.Provider using the OpenAI audio API.
type Provider struct {
	client oai.Client
	model  string
}

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	model   string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithModel selects the transcription model (e.g., "whisper-1",
// "gpt-4o-mini-transcribe"). Defaults to "whisper-1".
func WithModel(model string) Option {
	return func(c *config) {
		c.model = model
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs a new OpenAI STT Provider.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}

	cfg := &config{model: defaultModel}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	client := oai.NewClient(reqOpts...)
	return &Provider{client: client, model: cfg.model}, nil
}

// Name implements stt.Provider.
func (p *Provider) Name() string { return "openai" }

// Transcribe implements stt.Provider by uploading the audio file to the
// OpenAI transcriptions endpoint.
func (p *Provider) Transcribe(ctx context.Context, audioPath string, language string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("openai: open audio file: %w", err)
	}
	defer f.Close()

	params := oai.AudioTranscriptionNewParams{
		File:  f,
		Model: oai.AudioModel(p.model),
	}
	if language != "" {
		params.Language = oai.String(language)
	}

	resp, err := p.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai: transcription: %w", err)
	}

	return strings.TrimSpace(resp.Text), nil
}
