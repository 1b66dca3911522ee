package resilience

import (
	"context"

	"github.com/kikitori/kikitori/pkg/provider/translate"
)

// TranslateFallback implements [translate.Provider] with automatic failover
// across multiple translation backends.
type TranslateFallback struct {
	group *FallbackGroup[translate.Provider]
}

var _ translate.Provider = (*TranslateFallback)(nil)

// NewTranslateFallback creates a [TranslateFallback] with primary as the
// preferred backend.
func NewTranslateFallback(primary translate.Provider, cfg FallbackConfig) *TranslateFallback {
	return &TranslateFallback{
		group: NewFallbackGroup(primary, primary.Name(), cfg),
	}
}

// AddFallback registers an additional translation provider as a fallback.
func (f *TranslateFallback) AddFallback(provider translate.Provider) {
	f.group.AddFallback(provider.Name(), provider)
}

// Translate renders the text through the first healthy backend.
func (f *TranslateFallback) Translate(ctx context.Context, text string) (string, error) {
	return ExecuteWithResult(f.group, func(p translate.Provider) (string, error) {
		return p.Translate(ctx, text)
	})
}

// Name identifies the failover chain in logs.
func (f *TranslateFallback) Name() string { return "translate-fallback" }
