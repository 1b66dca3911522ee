// Package translate defines the Provider interface for Japanese-to-English
// translation backends.
//
// A translation provider wraps an external translation engine (DeepL, an
// OpenAI chat model, or any LLM reachable through any-llm-go) behind a single
// text-in, text-out call. Implementations must be safe for concurrent use.
package translate

import "context"

// Provider is the abstraction over any translation backend.
type Provider interface {
	// Translate converts Japanese source text to US-English and returns the
	// translated text. A failure of the underlying engine propagates as an
	// error; providers do not retry.
	Translate(ctx context.Context, text string) (string, error)

	// Name returns the provider name for logs and metrics.
	Name() string
}
