package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	sttmock "github.com/kikitori/kikitori/pkg/provider/stt/mock"
	translatemock "github.com/kikitori/kikitori/pkg/provider/translate/mock"
)

func TestSTTFallback_PrimarySucceeds(t *testing.T) {
	primary := &sttmock.Provider{Text: "こんにちは", ProviderName: "primary"}
	secondary := &sttmock.Provider{Text: "unused", ProviderName: "secondary"}

	f := NewSTTFallback(primary, FallbackConfig{})
	f.AddFallback(secondary)

	text, err := f.Transcribe(context.Background(), "a.wav", "ja")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "こんにちは" {
		t.Errorf("text = %q, want primary result", text)
	}
	if len(secondary.Calls()) != 0 {
		t.Error("secondary was called although primary succeeded")
	}
}

func TestSTTFallback_FailsOverToSecondary(t *testing.T) {
	primary := &sttmock.Provider{Err: errTest, ProviderName: "primary"}
	secondary := &sttmock.Provider{Text: "こんにちは", ProviderName: "secondary"}

	f := NewSTTFallback(primary, FallbackConfig{})
	f.AddFallback(secondary)

	text, err := f.Transcribe(context.Background(), "a.wav", "ja")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "こんにちは" {
		t.Errorf("text = %q, want secondary result", text)
	}
}

func TestSTTFallback_AllFail(t *testing.T) {
	primary := &sttmock.Provider{Err: errTest, ProviderName: "primary"}

	f := NewSTTFallback(primary, FallbackConfig{})

	_, err := f.Transcribe(context.Background(), "a.wav", "ja")
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestSTTFallback_OpenCircuitSkipsPrimary(t *testing.T) {
	primary := &sttmock.Provider{Err: errTest, ProviderName: "primary"}
	secondary := &sttmock.Provider{Text: "ok", ProviderName: "secondary"}

	f := NewSTTFallback(primary, FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour},
	})
	f.AddFallback(secondary)

	// First call trips the primary's breaker.
	if _, err := f.Transcribe(context.Background(), "a.wav", "ja"); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if _, err := f.Transcribe(context.Background(), "b.wav", "ja"); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	if got := len(primary.Calls()); got != 1 {
		t.Errorf("primary called %d times, want 1 (breaker should skip it)", got)
	}
	if got := len(secondary.Calls()); got != 2 {
		t.Errorf("secondary called %d times, want 2", got)
	}
}

func TestTranslateFallback_FailsOver(t *testing.T) {
	primary := &translatemock.Provider{Err: errTest, ProviderName: "primary"}
	secondary := &translatemock.Provider{Text: "Hello", ProviderName: "secondary"}

	f := NewTranslateFallback(primary, FallbackConfig{})
	f.AddFallback(secondary)

	text, err := f.Translate(context.Background(), "こんにちは")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if text != "Hello" {
		t.Errorf("text = %q, want secondary result", text)
	}
}
