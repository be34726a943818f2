package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// AttachmentFetcher downloads attachment payloads (image or PDF bytes)
// from the chat transport's file URLs.
type AttachmentFetcher interface {
	FetchAttachment(ctx context.Context, fileURL string) ([]byte, error)
}

// HTTPAttachmentFetcher implements AttachmentFetcher over a pooled HTTP
// client with bounded retries for transient failures.
type HTTPAttachmentFetcher struct {
	client  *http.Client
	maxSize int64
	sleep   func(time.Duration)
}

// NewHTTPAttachmentFetcher creates an attachment fetcher. maxSize bounds
// the accepted payload size in bytes.
func NewHTTPAttachmentFetcher(maxSize int64) *HTTPAttachmentFetcher {
	transport := &http.Transport{
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &HTTPAttachmentFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   60 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		maxSize: maxSize,
		sleep:   time.Sleep,
	}
}

// FetchAttachment downloads the payload at fileURL. Server errors are
// retried up to 3 attempts with a growing delay; client errors fail
// immediately.
func (h *HTTPAttachmentFetcher) FetchAttachment(ctx context.Context, fileURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid attachment URL: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			h.sleep(time.Duration(attempt) * time.Second)
		}

		resp, err := h.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusOK {
			defer resp.Body.Close()
			data, err := io.ReadAll(io.LimitReader(resp.Body, h.maxSize+1))
			if err != nil {
				return nil, fmt.Errorf("failed to read attachment: %w", err)
			}
			if int64(len(data)) > h.maxSize {
				return nil, fmt.Errorf("attachment exceeds %d byte limit", h.maxSize)
			}
			return data, nil
		}

		resp.Body.Close()
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			// Client errors are not retryable
			return nil, fmt.Errorf("client error: status code %d", resp.StatusCode)
		}
		lastErr = fmt.Errorf("server error: status code %d", resp.StatusCode)
	}

	return nil, fmt.Errorf("failed to fetch attachment after 3 attempts: %w", lastErr)
}
