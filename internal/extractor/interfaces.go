package extractor

import "context"

// Client performs a single text-extraction call against one model identity.
// Implementations must classify rate-limit/quota failures as
// errors.ErrorTypeRateLimited so the failover engine can rotate the pool;
// every other failure is fatal for the request.
type Client interface {
	// Extract transcribes the text in the given encoded image (PNG or JPEG
	// bytes) using the named model. The returned text is verbatim; an empty
	// string is a valid result.
	Extract(ctx context.Context, model string, prompt string, image []byte) (string, error)
}
