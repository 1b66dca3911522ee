// Package mock provides a test double for the translate.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/kikitori/kikitori/pkg/provider/translate"
)

// Provider is a mock implementation of translate.Provider.
type Provider struct {
	mu sync.Mutex

	// Text is the translation returned by Translate.
	Text string

	// Err, if non-nil, is returned as the error from Translate.
	Err error

	// ProviderName is returned by Name. Defaults to "mock".
	ProviderName string

	// TranslateCalls records the source text of every call to Translate.
	TranslateCalls []string
}

// Compile-time assertion that Provider implements translate.Provider.
var _ translate.Provider = (*Provider)(nil)

// Translate records the call and returns Text, Err.
func (p *Provider) Translate(_ context.Context, text string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TranslateCalls = append(p.TranslateCalls, text)
	if p.Err != nil {
		return "", p.Err
	}
	return p.Text, nil
}

// Name returns ProviderName, or "mock" when unset.
func (p *Provider) Name() string {
	if p.ProviderName != "" {
		return p.ProviderName
	}
	return "mock"
}

// Calls returns a copy of the recorded Translate calls.
func (p *Provider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.TranslateCalls))
	copy(out, p.TranslateCalls)
	return out
}
