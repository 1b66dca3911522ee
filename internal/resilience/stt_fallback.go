package resilience

import (
	"context"

	"github.com/kikitori/kikitori/pkg/provider/stt"
)

// STTFallback implements [stt.Provider] with automatic failover across
// multiple transcription backends. Each backend has its own circuit breaker.
type STTFallback struct {
	group *FallbackGroup[stt.Provider]
}

var _ stt.Provider = (*STTFallback)(nil)

// NewSTTFallback creates an [STTFallback] with primary as the preferred
// backend.
func NewSTTFallback(primary stt.Provider, cfg FallbackConfig) *STTFallback {
	return &STTFallback{
		group: NewFallbackGroup(primary, primary.Name(), cfg),
	}
}

// AddFallback registers an additional transcription provider as a fallback.
func (f *STTFallback) AddFallback(provider stt.Provider) {
	f.group.AddFallback(provider.Name(), provider)
}

// Transcribe runs the audio file through the first healthy backend.
func (f *STTFallback) Transcribe(ctx context.Context, audioPath string, language string) (string, error) {
	return ExecuteWithResult(f.group, func(p stt.Provider) (string, error) {
		return p.Transcribe(ctx, audioPath, language)
	})
}

// Name identifies the failover chain in logs.
func (f *STTFallback) Name() string { return "stt-fallback" }
