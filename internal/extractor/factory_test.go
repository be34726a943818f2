package extractor

import (
	"context"
	"sync"
	"testing"
)

type stubClient struct {
	text string
}

func (s *stubClient) Extract(ctx context.Context, model string, prompt string, image []byte) (string, error) {
	return s.text, nil
}

func TestFactoryRegisterInstallsClient(t *testing.T) {
	f := NewFactory("test-key")
	stub := &stubClient{text: "stubbed"}
	f.Register(TesseractProvider, stub)

	client, err := f.ClientFor(configRef("tesseract", "fas"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client != stub {
		t.Error("expected the registered client to be returned")
	}

	text, err := client.Extract(context.Background(), "fas", "prompt", []byte{1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "stubbed" {
		t.Errorf("unexpected text: %q", text)
	}
}

func TestFactoryClientForConcurrentFirstResolve(t *testing.T) {
	// The factory is process-wide shared state: concurrent conversations
	// may race to resolve an uncached provider. Every caller must get the
	// same cached instance without corrupting the cache.
	f := NewFactory("test-key")
	ref := configRef("gemini", "gemini-1.5-pro")

	const callers = 50
	clients := make([]Client, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			client, err := f.ClientFor(ref)
			if err != nil {
				t.Errorf("caller %d: unexpected error: %v", i, err)
				return
			}
			clients[i] = client
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		if clients[i] != clients[0] {
			t.Fatalf("caller %d received a different client instance", i)
		}
	}
}
