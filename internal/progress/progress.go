package progress

import (
	"github.com/sirupsen/logrus"

	"github.com/KasraH/persian-ocr-telegram-bot/internal/logger"
)

// EventType represents the type of extraction progress event
type EventType string

const (
	// ExtractionStarted when an image or document extraction begins
	ExtractionStarted EventType = "extraction_started"
	// PageStarted when a document page begins processing
	PageStarted EventType = "page_started"
	// PageCompleted when a document page yields text (possibly none)
	PageCompleted EventType = "page_completed"
	// PageFailed when a document page fails terminally
	PageFailed EventType = "page_failed"
)

// Event describes one step of an extraction in flight.
type Event struct {
	Type       EventType
	Model      string
	Page       int // 1-based, document extractions only
	TotalPages int
	TextFound  bool
	Err        error
}

// Observer receives progress events for one extraction. Events are
// delivered synchronously and in order, so an observer may relay them as
// chat progress messages.
type Observer interface {
	OnEvent(event Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(event Event) { f(event) }

// Nop discards all events.
var Nop Observer = ObserverFunc(func(Event) {})

// LogObserver logs progress events. It is usually composed with a chat
// notifier via Multi.
type LogObserver struct{}

func (LogObserver) OnEvent(event Event) {
	fields := logrus.Fields{
		"event_type": event.Type,
		"model":      event.Model,
	}
	if event.TotalPages > 0 {
		fields["page"] = event.Page
		fields["total_pages"] = event.TotalPages
	}

	switch event.Type {
	case PageFailed:
		logger.WithError(event.Err).WithFields(fields).Error("Page extraction failed")
	case PageCompleted:
		fields["text_found"] = event.TextFound
		logger.WithFields(fields).Info("Page extraction completed")
	default:
		logger.WithFields(fields).Info("Extraction progress")
	}
}

// Multi fans an event out to several observers in order. A panicking
// observer is logged and skipped rather than aborting the extraction.
func Multi(observers ...Observer) Observer {
	return ObserverFunc(func(event Event) {
		for _, obs := range observers {
			func() {
				defer func() {
					if r := recover(); r != nil {
						logger.WithField("panic", r).Error("Progress observer panicked")
					}
				}()
				obs.OnEvent(event)
			}()
		}
	})
}
