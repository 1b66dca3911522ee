// Package stt defines the Provider interface for speech-to-text backends.
//
// An STT provider wraps a transcription engine (a local whisper.cpp server,
// the whisper.cpp CGO bindings, or the OpenAI audio API) and exposes a
// uniform file-based interface: audio file path in, recognized text out.
//
// Implementations must be safe for concurrent use; a single provider serves
// every upload request in the process.
package stt

import "context"

// Provider is the abstraction over any speech-to-text backend.
type Provider interface {
	// Transcribe runs speech recognition on the audio file at audioPath and
	// returns the recognized text. language is a BCP-47 language code hint
	// (e.g., "ja"); an empty string falls back to the provider's configured
	// default. A failure of the underlying engine propagates as an error;
	// providers do not retry.
	Transcribe(ctx context.Context, audioPath string, language string) (string, error)

	// Name returns the provider name for logs and metrics.
	Name() string
}
