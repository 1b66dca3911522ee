// Package deepl provides a translation provider backed by the DeepL REST API
// (POST /v2/translate).
//
// Free-tier keys (suffix ":fx") are routed to api-free.deepl.com; all other
// keys use api.deepl.com. The base URL can be overridden for testing.
package deepl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kikitori/kikitori/pkg/provider/translate"
)

const (
	defaultBaseURL     = "https://api.deepl.com"
	freeBaseURL        = "https://api-free.deepl.com"
	defaultSourceLang  = "JA"
	defaultTargetLang  = "EN-US"
	defaultHTTPTimeout = 30 * time.Second
)

// Compile-time assertion that Provider implements translate.Provider.
var _ translate.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithBaseURL overrides the DeepL API base URL (e.g., for a test server).
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = u }
}

// WithLanguagePair overrides the source and target language codes. Defaults
// to JA → EN-US.
func WithLanguagePair(source, target string) Option {
	return func(p *Provider) {
		p.sourceLang = source
		p.targetLang = target
	}
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.httpClient.Timeout = d }
}

// Provider implements translate.Provider against the DeepL REST API.
type Provider struct {
	apiKey     string
	baseURL    string
	sourceLang string
	targetLang string
	httpClient *http.Client
}

// New creates a DeepL Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("deepl: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		sourceLang: defaultSourceLang,
		targetLang: defaultTargetLang,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	if strings.HasSuffix(apiKey, ":fx") {
		p.baseURL = freeBaseURL
	} else {
		p.baseURL = defaultBaseURL
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Name implements translate.Provider.
func (p *Provider) Name() string { return "deepl" }

// Translate implements translate.Provider.
func (p *Provider) Translate(ctx context.Context, text string) (string, error) {
	form := url.Values{}
	form.Set("text", text)
	form.Set("source_lang", p.sourceLang)
	form.Set("target_lang", p.targetLang)

	endpoint := p.baseURL + "/v2/translate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("deepl: create request: %w", err)
	}
	req.Header.Set("Authorization", "DeepL-Auth-Key "+p.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("deepl: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("deepl: server returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("deepl: read response body: %w", err)
	}

	var result struct {
		Translations []struct {
			Text string `json:"text"`
		} `json:"translations"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("deepl: parse JSON response: %w", err)
	}
	if len(result.Translations) == 0 {
		return "", errors.New("deepl: empty translations in response")
	}

	return result.Translations[0].Text, nil
}
