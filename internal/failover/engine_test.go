package failover

import (
	"context"
	"testing"
	"time"

	"github.com/KasraH/persian-ocr-telegram-bot/internal/config"
	apperrors "github.com/KasraH/persian-ocr-telegram-bot/internal/errors"
	"github.com/KasraH/persian-ocr-telegram-bot/internal/extractor"
	"github.com/KasraH/persian-ocr-telegram-bot/internal/pool"
)

// scriptedClient fails or succeeds per model name.
type scriptedClient struct {
	// behavior per model name: "ok", "rate_limited", "fatal"
	behavior map[string]string
	calls    []string
}

func (s *scriptedClient) Extract(ctx context.Context, model string, prompt string, image []byte) (string, error) {
	s.calls = append(s.calls, model)
	switch s.behavior[model] {
	case "rate_limited":
		return "", apperrors.NewRateLimitedError("rate limited", nil)
	case "fatal":
		return "", apperrors.NewExtractionError("boom", nil)
	default:
		return "text from " + model, nil
	}
}

type staticResolver struct {
	client extractor.Client
}

func (r *staticResolver) ClientFor(ref config.ModelRef) (extractor.Client, error) {
	return r.client, nil
}

func newTestEngine(client *scriptedClient, retryFactor int, models ...string) (*Engine, *pool.Registry) {
	refs := make([]config.ModelRef, 0, len(models))
	for _, m := range models {
		refs = append(refs, config.ModelRef{Provider: "gemini", Name: m})
	}
	registry := pool.NewRegistry(refs)
	engine := NewEngine(registry, &staticResolver{client: client}, retryFactor, time.Millisecond)
	engine.sleep = func(time.Duration) {}
	return engine, registry
}

func TestExtractSucceedsFirstAttempt(t *testing.T) {
	client := &scriptedClient{behavior: map[string]string{"m1": "ok"}}
	engine, registry := newTestEngine(client, 3, "m1", "m2")

	text, err := engine.Extract(context.Background(), []byte{1}, "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "text from m1" {
		t.Errorf("unexpected text: %q", text)
	}
	if len(client.calls) != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", len(client.calls))
	}
	if registry.Current().Name != "m1" {
		t.Errorf("cursor must not move on success, got %s", registry.Current().Name)
	}
}

func TestExtractRotatesOnRateLimit(t *testing.T) {
	// m1 always rate limited, m2 always succeeds: extraction succeeds on
	// the 2nd attempt after exactly one rotation, cursor left at m2.
	client := &scriptedClient{behavior: map[string]string{
		"m1": "rate_limited",
		"m2": "ok",
	}}
	engine, registry := newTestEngine(client, 3, "m1", "m2")

	text, err := engine.Extract(context.Background(), []byte{1}, "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "text from m2" {
		t.Errorf("unexpected text: %q", text)
	}
	if len(client.calls) != 2 {
		t.Fatalf("expected 2 attempts, got %d: %v", len(client.calls), client.calls)
	}
	if client.calls[0] != "m1" || client.calls[1] != "m2" {
		t.Errorf("unexpected attempt order: %v", client.calls)
	}
	if registry.Current().Name != "m2" {
		t.Errorf("expected cursor left at m2, got %s", registry.Current().Name)
	}

	identities, _ := registry.Snapshot()
	if identities[0].ErrorCount != 1 {
		t.Errorf("expected m1 charged one error, got %d", identities[0].ErrorCount)
	}
}

func TestExtractFatalErrorNoRetryNoRotation(t *testing.T) {
	client := &scriptedClient{behavior: map[string]string{"m1": "fatal"}}
	engine, registry := newTestEngine(client, 3, "m1", "m2")

	_, err := engine.Extract(context.Background(), []byte{1}, "prompt")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeExtraction) {
		t.Errorf("expected fatal extraction error, got %v", err)
	}
	if len(client.calls) != 1 {
		t.Errorf("fatal error must not trigger a second attempt, got %d calls", len(client.calls))
	}
	if registry.Current().Name != "m1" {
		t.Errorf("fatal error must not advance the cursor, got %s", registry.Current().Name)
	}
	identities, _ := registry.Snapshot()
	if identities[0].ErrorCount != 0 {
		t.Errorf("fatal error must not charge a failover error, got %d", identities[0].ErrorCount)
	}
}

func TestExtractExhaustedAfterBoundedAttempts(t *testing.T) {
	tests := []struct {
		name        string
		models      []string
		retryFactor int
	}{
		{name: "pool of one, factor one", models: []string{"m1"}, retryFactor: 1},
		{name: "pool of one, factor three", models: []string{"m1"}, retryFactor: 3},
		{name: "pool of two, factor three", models: []string{"m1", "m2"}, retryFactor: 3},
		{name: "pool of three, factor two", models: []string{"m1", "m2", "m3"}, retryFactor: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			behavior := make(map[string]string, len(tt.models))
			for _, m := range tt.models {
				behavior[m] = "rate_limited"
			}
			client := &scriptedClient{behavior: behavior}
			engine, _ := newTestEngine(client, tt.retryFactor, tt.models...)

			_, err := engine.Extract(context.Background(), []byte{1}, "prompt")
			if err == nil {
				t.Fatal("expected exhaustion")
			}
			if !apperrors.IsType(err, apperrors.ErrorTypeExhausted) {
				t.Errorf("expected exhausted error, got %v", err)
			}

			maxAttempts := tt.retryFactor * len(tt.models)
			if len(client.calls) != maxAttempts {
				t.Errorf("expected exactly %d attempts, got %d", maxAttempts, len(client.calls))
			}
		})
	}
}

func TestExtractBackoffAppliedBetweenRotations(t *testing.T) {
	client := &scriptedClient{behavior: map[string]string{
		"m1": "rate_limited",
		"m2": "ok",
	}}
	engine, _ := newTestEngine(client, 3, "m1", "m2")

	var slept []time.Duration
	engine.sleep = func(d time.Duration) { slept = append(slept, d) }

	if _, err := engine.Extract(context.Background(), []byte{1}, "prompt"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slept) != 1 {
		t.Errorf("expected exactly one back-off sleep, got %d", len(slept))
	}
}

func TestExtractPoolOfOneDegeneratesToSameIdentityRetry(t *testing.T) {
	client := &scriptedClient{behavior: map[string]string{"m1": "rate_limited"}}
	engine, registry := newTestEngine(client, 3, "m1")

	_, err := engine.Extract(context.Background(), []byte{1}, "prompt")
	if !apperrors.IsType(err, apperrors.ErrorTypeExhausted) {
		t.Fatalf("expected exhausted error, got %v", err)
	}
	for _, call := range client.calls {
		if call != "m1" {
			t.Errorf("expected every attempt on m1, got %v", client.calls)
		}
	}
	if registry.Current().Name != "m1" {
		t.Errorf("cursor must stay valid on pool of one, got %s", registry.Current().Name)
	}
}
