// Package mock provides a test double for the stt.Provider interface.
//
// Use Provider to return controlled transcription text and to inspect which
// audio paths and languages the caller requested.
package mock

import (
	"context"
	"sync"

	"github.com/kikitori/kikitori/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Provider.Transcribe.
type TranscribeCall struct {
	// AudioPath is the file path passed to Transcribe.
	AudioPath string
	// Language is the language hint passed to Transcribe.
	Language string
}

// Provider is a mock implementation of stt.Provider.
type Provider struct {
	mu sync.Mutex

	// Text is the transcription returned by Transcribe.
	Text string

	// Err, if non-nil, is returned as the error from Transcribe.
	Err error

	// ProviderName is returned by Name. Defaults to "mock".
	ProviderName string

	// TranscribeCalls records every call to Transcribe.
	TranscribeCalls []TranscribeCall
}

// Compile-time assertion that Provider implements stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// Transcribe records the call and returns Text, Err.
func (p *Provider) Transcribe(_ context.Context, audioPath string, language string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TranscribeCalls = append(p.TranscribeCalls, TranscribeCall{AudioPath: audioPath, Language: language})
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

// Calls returns a copy of the recorded Transcribe calls.
func (p *Provider) Calls() []TranscribeCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]TranscribeCall, len(p.TranscribeCalls))
	copy(out, p.TranscribeCalls)
	return out
}
