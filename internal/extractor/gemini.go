package extractor

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/KasraH/persian-ocr-telegram-bot/internal/errors"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClient calls the Gemini generateContent endpoint over HTTP.
type GeminiClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// GeminiOption configures a GeminiClient.
type GeminiOption func(*GeminiClient)

// WithBaseURL overrides the API base URL. Used by tests.
func WithBaseURL(baseURL string) GeminiOption {
	return func(c *GeminiClient) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) GeminiOption {
	return func(c *GeminiClient) {
		c.client = client
	}
}

// NewGeminiClient creates a Gemini extraction client.
func NewGeminiClient(apiKey string, opts ...GeminiOption) *GeminiClient {
	c := &GeminiClient{
		apiKey:  apiKey,
		baseURL: defaultGeminiBaseURL,
		client:  &http.Client{Timeout: 90 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *geminiError `json:"error"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Extract sends the prompt and image to the named Gemini model and returns
// the concatenated candidate text verbatim.
func (c *GeminiClient) Extract(ctx context.Context, model string, prompt string, image []byte) (string, error) {
	payload := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{
				{Text: prompt},
				{InlineData: &geminiInlineData{
					MimeType: detectMimeType(image),
					Data:     base64.StdEncoding.EncodeToString(image),
				}},
			},
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", apperrors.NewExtractionError("failed to encode extraction request", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", apperrors.NewExtractionError("failed to build extraction request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", apperrors.NewExtractionError("extraction request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.NewExtractionError("failed to read extraction response", err)
	}

	var result geminiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", classifyGeminiFailure(resp.StatusCode, &geminiError{
				Code:    resp.StatusCode,
				Message: strings.TrimSpace(string(respBody)),
			})
		}
		return "", apperrors.NewExtractionError("invalid extraction response", err)
	}

	if resp.StatusCode != http.StatusOK || result.Error != nil {
		return "", classifyGeminiFailure(resp.StatusCode, result.Error)
	}

	if len(result.Candidates) == 0 {
		return "", apperrors.NewExtractionError("model returned no candidates", nil)
	}

	var text strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return text.String(), nil
}

// classifyGeminiFailure is the pure classification step of the failover
// state machine: rate-limit/quota conditions become recoverable
// rate-limited errors, everything else is fatal.
func classifyGeminiFailure(statusCode int, apiErr *geminiError) error {
	message := "model call failed"
	cause := fmt.Errorf("status %d", statusCode)
	if apiErr != nil {
		cause = fmt.Errorf("status %d: %s %s", statusCode, apiErr.Status, apiErr.Message)
	}

	if isRateLimitSignature(statusCode, apiErr) {
		return apperrors.NewRateLimitedError("model rate limit or quota exceeded", cause)
	}
	return apperrors.NewExtractionError(message, cause)
}

// isRateLimitSignature inspects the error's code and textual category for
// known rate-limit/quota markers.
func isRateLimitSignature(statusCode int, apiErr *geminiError) bool {
	if statusCode == http.StatusTooManyRequests {
		return true
	}
	if apiErr == nil {
		return false
	}
	if apiErr.Code == http.StatusTooManyRequests {
		return true
	}
	status := strings.ToUpper(apiErr.Status)
	if status == "RESOURCE_EXHAUSTED" {
		return true
	}
	message := strings.ToLower(apiErr.Message)
	return strings.Contains(message, "quota") || strings.Contains(message, "rate limit")
}

func detectMimeType(image []byte) string {
	if len(image) >= 3 && image[0] == 0xFF && image[1] == 0xD8 && image[2] == 0xFF {
		return "image/jpeg"
	}
	return "image/png"
}
