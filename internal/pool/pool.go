package pool

import (
	"sync"
	"time"

	"github.com/KasraH/persian-ocr-telegram-bot/internal/config"
)

// ModelIdentity is one configured endpoint/version of a text-extraction
// service, interchangeable with its peers for failover purposes. Counters
// only ever grow for the lifetime of the process.
type ModelIdentity struct {
	Name         string    `json:"name"`
	Provider     string    `json:"provider"`
	RequestCount int64     `json:"request_count"`
	ErrorCount   int64     `json:"error_count"`
	LastUsed     time.Time `json:"last_used"`
}

// Registry holds the ordered model identity pool and the process-wide
// failover cursor: the identity that will serve the next outgoing request.
// A rate-limit event on one request biases all subsequent requests toward a
// model believed to currently have headroom, so the cursor is shared across
// conversations and advances only on rate-limit failures.
type Registry struct {
	mu         sync.Mutex
	identities []*ModelIdentity
	cursor     int
	clock      func() time.Time
}

// NewRegistry creates a registry from the ordered configured pool.
func NewRegistry(refs []config.ModelRef) *Registry {
	identities := make([]*ModelIdentity, 0, len(refs))
	for _, ref := range refs {
		identities = append(identities, &ModelIdentity{
			Name:     ref.Name,
			Provider: ref.Provider,
		})
	}
	return &Registry{
		identities: identities,
		clock:      time.Now,
	}
}

// Size returns the number of identities in the pool.
func (r *Registry) Size() int {
	return len(r.identities)
}

// Current returns the identity at the failover cursor.
func (r *Registry) Current() *ModelIdentity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.identities[r.cursor]
}

// Advance increments the error count of the identity that was current,
// moves the cursor to the next identity modulo pool size, and returns the
// new current identity. Called only on rate-limit/quota failures.
func (r *Registry) Advance() *ModelIdentity {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.identities[r.cursor].ErrorCount++
	r.cursor = (r.cursor + 1) % len(r.identities)
	return r.identities[r.cursor]
}

// RecordAttempt bumps the request counter and last-used timestamp of the
// given identity.
func (r *Registry) RecordAttempt(identity *ModelIdentity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	identity.RequestCount++
	identity.LastUsed = r.clock()
}

// Snapshot returns a copy of the pool state for logging and the admin
// stats endpoint.
func (r *Registry) Snapshot() ([]ModelIdentity, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ModelIdentity, len(r.identities))
	for i, identity := range r.identities {
		out[i] = *identity
	}
	return out, r.cursor
}
