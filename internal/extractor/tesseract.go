package extractor

import (
	"context"

	"github.com/otiai10/gosseract/v2"

	apperrors "github.com/KasraH/persian-ocr-telegram-bot/internal/errors"
)

// TesseractClient runs a local Tesseract engine as a pool identity. The
// model name is interpreted as the Tesseract language code ("fas" for
// Persian). A local engine has no quota, so its failures are always fatal
// rather than rate-limited.
type TesseractClient struct {
	clientFactory func() *gosseract.Client
}

// NewTesseractClient creates a Tesseract-backed extraction client.
func NewTesseractClient() *TesseractClient {
	return &TesseractClient{clientFactory: gosseract.NewClient}
}

// Extract runs OCR on the encoded image. The prompt is ignored: local
// Tesseract is not instruction-driven.
func (t *TesseractClient) Extract(ctx context.Context, model string, prompt string, image []byte) (string, error) {
	select {
	case <-ctx.Done():
		return "", apperrors.NewExtractionError("extraction cancelled", ctx.Err())
	default:
	}

	c := t.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(image); err != nil {
		return "", apperrors.NewExtractionError("failed to load image into tesseract", err)
	}
	if err := c.SetLanguage(model); err != nil {
		return "", apperrors.NewExtractionError("failed to set tesseract language", err)
	}

	text, err := c.Text()
	if err != nil {
		return "", apperrors.NewExtractionError("tesseract recognition failed", err)
	}
	return text, nil
}
