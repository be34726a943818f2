package ledger

import (
	"fmt"
	"sync"

	apperrors "github.com/KasraH/persian-ocr-telegram-bot/internal/errors"
)

// Ledger maps extraction handles to extracted text, partitioned per
// conversation so one user's text is never visible to another. It bridges
// the gap between text production and the later send-to-email tap.
//
// Entries live for the process lifetime: there is no eviction or size cap,
// which is accepted at single-operator scale.
type Ledger struct {
	mu            sync.RWMutex
	conversations map[int64]map[string]string
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		conversations: make(map[int64]map[string]string),
	}
}

// ImageHandle builds the handle for a single-image extraction from the
// outbound result message id.
func ImageHandle(messageID int) string {
	return fmt.Sprintf("img_%d", messageID)
}

// DocumentHandle builds the handle for a document extraction from the
// outbound result message id.
func DocumentHandle(messageID int) string {
	return fmt.Sprintf("pdf_%d", messageID)
}

// Store inserts or overwrites the text under the given handle within the
// conversation. Uniqueness is the caller's concern via handle construction.
func (l *Ledger) Store(chatID int64, handle, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries, ok := l.conversations[chatID]
	if !ok {
		entries = make(map[string]string)
		l.conversations[chatID] = entries
	}
	entries[handle] = text
}

// Retrieve returns the text stored under the handle within the
// conversation, or a not-found error if absent.
func (l *Ledger) Retrieve(chatID int64, handle string) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if entries, ok := l.conversations[chatID]; ok {
		if text, ok := entries[handle]; ok {
			return text, nil
		}
	}
	return "", apperrors.NewNotFoundError("could not find the extracted text", nil)
}
