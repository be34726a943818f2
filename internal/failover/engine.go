package failover

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/KasraH/persian-ocr-telegram-bot/internal/config"
	apperrors "github.com/KasraH/persian-ocr-telegram-bot/internal/errors"
	"github.com/KasraH/persian-ocr-telegram-bot/internal/extractor"
	"github.com/KasraH/persian-ocr-telegram-bot/internal/logger"
	"github.com/KasraH/persian-ocr-telegram-bot/internal/pool"
)

// ClientResolver resolves a pool identity to the extraction client that
// serves it. Implemented by extractor.Factory.
type ClientResolver interface {
	ClientFor(ref config.ModelRef) (extractor.Client, error)
}

// Engine wraps a single logical "extract text from this image" request and
// survives rate-limit/quota failures by rotating the shared pool cursor.
// The loop is a bounded state machine: Attempting -> Success | Rotate |
// Fatal | Exhausted.
type Engine struct {
	registry    *pool.Registry
	resolver    ClientResolver
	retryFactor int
	backoff     time.Duration
	sleep       func(time.Duration)
}

// NewEngine creates a failover engine over the shared registry.
func NewEngine(registry *pool.Registry, resolver ClientResolver, retryFactor int, backoff time.Duration) *Engine {
	if retryFactor < 1 {
		retryFactor = 1
	}
	return &Engine{
		registry:    registry,
		resolver:    resolver,
		retryFactor: retryFactor,
		backoff:     backoff,
		sleep:       time.Sleep,
	}
}

// CurrentModel returns the name of the identity that will serve the next
// attempt. Used for progress messages.
func (e *Engine) CurrentModel() string {
	return e.registry.Current().Name
}

// Extract runs one extraction with failover. On a rate-limit/quota failure
// it advances the cursor, backs off briefly so the new identity can cool
// in, and retries, up to retryFactor x pool-size attempts in total. Any
// non-rate-limit failure aborts immediately with no rotation.
func (e *Engine) Extract(ctx context.Context, image []byte, prompt string) (string, error) {
	maxAttempts := e.retryFactor * e.registry.Size()
	attempts := 0

	for {
		identity := e.registry.Current()
		e.registry.RecordAttempt(identity)

		client, err := e.resolver.ClientFor(config.ModelRef{
			Provider: identity.Provider,
			Name:     identity.Name,
		})
		if err != nil {
			return "", apperrors.NewExtractionError("no client for model identity", err)
		}

		text, err := client.Extract(ctx, identity.Name, prompt, image)
		if err == nil {
			// Verbatim, even if empty. Emptiness is a pipeline concern.
			return text, nil
		}

		if !apperrors.IsType(err, apperrors.ErrorTypeRateLimited) {
			logger.WithError(err).WithFields(logrus.Fields{
				"model":    identity.Name,
				"provider": identity.Provider,
			}).Error("Extraction failed with non-recoverable error")
			return "", err
		}

		attempts++
		if attempts >= maxAttempts {
			logger.WithFields(logrus.Fields{
				"model":    identity.Name,
				"attempts": attempts,
			}).Error("Every model identity exhausted")
			return "", apperrors.NewExhaustedError(
				fmt.Sprintf("all models rate limited after %d attempts", attempts), err)
		}

		next := e.registry.Advance()
		logger.WithFields(logrus.Fields{
			"failed_model": identity.Name,
			"next_model":   next.Name,
			"attempt":      attempts,
			"max_attempts": maxAttempts,
		}).Warn("Model rate limited, rotating to next identity")

		e.sleep(e.backoff)
	}
}
