// Package anyllm provides a translation provider backed by
// github.com/mozilla-ai/any-llm-go, a unified multi-provider interface that
// supports OpenAI, Anthropic, Gemini, Ollama, DeepSeek, Mistral, Groq, and more.
//
// Usage:
//
//	p, err := anyllm.New("ollama", "qwen2.5:14b", anyllmlib.WithBaseURL("http://localhost:11434"))
//	text, err := p.Translate(ctx, "実は宝を見つけました")
package anyllm

import (
	"context"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/kikitori/kikitori/pkg/provider/translate"
)

// systemPrompt constrains the backing model to translation only.
const systemPrompt = "You are a professional Japanese to English translator. " +
	"Translate the user's Japanese text to natural US English. " +
	"Respond with only the translation, nothing else."

// Compile-time assertion that Provider implements translate.Provider.
var _ translate.Provider = (*Provider)(nil)

// Provider implements translate.Provider by wrapping any-llm-go.
type Provider struct {
	backend anyllmlib.Provider
	name    string
	model   string
}

// New creates a Provider backed by the given LLM provider name.
//
// providerName is one of: "openai", "anthropic", "gemini", "ollama",
// "mistral". model is the specific model to use (e.g., "gpt-4o",
// "claude-sonnet-4-5"). opts are any-llm-go configuration options
// (e.g., anyllmlib.WithAPIKey, anyllmlib.WithBaseURL); without an API key
// option the backend falls back to its usual environment variable.
func New(providerName string, model string, opts ...anyllmlib.Option) (*Provider, error) {
	if providerName == "" {
		return nil, fmt.Errorf("anyllm: providerName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("anyllm: model must not be empty")
	}

	backend, err := createBackend(providerName, opts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", providerName, err)
	}

	return &Provider{backend: backend, name: providerName, model: model}, nil
}

// Name implements translate.Provider.
func (p *Provider) Name() string { return "anyllm/" + p.name }

// Translate implements translate.Provider.
func (p *Provider) Translate(ctx context.Context, text string) (string, error) {
	resp, err := p.backend.Completion(ctx, anyllmlib.CompletionParams{
		Model: p.model,
		Messages: []anyllmlib.Message{
			{Role: anyllmlib.RoleSystem, Content: systemPrompt},
			{Role: anyllmlib.RoleUser, Content: text},
		},
	})
	if err != nil {
		return "", fmt.Errorf("anyllm: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("anyllm: empty choices in response")
	}

	return strings.TrimSpace(resp.Choices[0].Message.ContentString()), nil
}

// createBackend creates the underlying any-llm-go provider for the given
// provider name.
func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q", providerName)
	}
}
