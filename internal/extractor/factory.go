package extractor

import (
	"fmt"
	"sync"

	"github.com/KasraH/persian-ocr-telegram-bot/internal/config"
)

// ProviderKind identifies an extraction client implementation.
type ProviderKind string

const (
	// GeminiProvider for remote Gemini model identities
	GeminiProvider ProviderKind = "gemini"
	// TesseractProvider for local Tesseract language identities
	TesseractProvider ProviderKind = "tesseract"
)

// Factory creates and caches extraction clients per provider kind, so the
// failover engine can resolve any pool identity to a client. It is shared
// by every conversation's handler goroutine, so the cache is mutex-guarded.
type Factory struct {
	apiKey string

	mu      sync.Mutex
	clients map[ProviderKind]Client
}

// NewFactory creates a client factory. The API key is used for remote
// providers only.
func NewFactory(apiKey string) *Factory {
	return &Factory{
		apiKey:  apiKey,
		clients: make(map[ProviderKind]Client),
	}
}

// ClientFor resolves the client serving the given pool entry.
func (f *Factory) ClientFor(ref config.ModelRef) (Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	kind := ProviderKind(ref.Provider)
	if client, ok := f.clients[kind]; ok {
		return client, nil
	}

	var client Client
	switch kind {
	case GeminiProvider:
		client = NewGeminiClient(f.apiKey)
	case TesseractProvider:
		client = NewTesseractClient()
	default:
		return nil, fmt.Errorf("unsupported extraction provider: %s", ref.Provider)
	}

	f.clients[kind] = client
	return client, nil
}

// Register installs a pre-built client for a provider kind. Used for
// wiring test doubles and custom configurations.
func (f *Factory) Register(kind ProviderKind, client Client) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clients[kind] = client
}
