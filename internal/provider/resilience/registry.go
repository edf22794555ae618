package resilience

import (
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// FeedHealth is the health status of one upstream feed. It lets ops
// surfaces distinguish "feed returned nothing" from "feed is down",
// which query results deliberately conflate.
type FeedHealth struct {
	// Name is the feed identifier (adapter source).
	Name string

	// CircuitState is the current circuit breaker state.
	CircuitState gobreaker.State

	// Counts contains circuit breaker statistics.
	Counts gobreaker.Counts

	// LastSuccessAt is the time of the last successful fetch.
	LastSuccessAt *time.Time

	// LastFailureAt is the time of the last failed fetch.
	LastFailureAt *time.Time

	// LastError is the most recent error message, if any.
	LastError string
}

// IsHealthy reports whether the feed circuit is closed and the most
// recent fetch did not fail.
func (h *FeedHealth) IsHealthy() bool {
	if h.CircuitState != gobreaker.StateClosed {
		return false
	}
	if h.LastFailureAt == nil {
		return true
	}
	return h.LastSuccessAt != nil && h.LastSuccessAt.After(*h.LastFailureAt)
}

// Registry tracks registered upstream feeds and their health. It is an
// explicit instance owned by the process wiring, not a package global.
type Registry struct {
	mu    sync.RWMutex
	feeds map[string]*registeredFeed
}

type registeredFeed struct {
	client        *Client
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
}

// NewRegistry creates an empty feed registry.
func NewRegistry() *Registry {
	return &Registry{feeds: make(map[string]*registeredFeed)}
}

// Register adds a feed client to the registry.
func (r *Registry) Register(name string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.feeds[name] = &registeredFeed{client: client}
}

// RecordSuccess records a successful fetch for a feed, registering it
// if needed.
func (r *Registry) RecordSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.ensureLocked(name).lastSuccessAt = &now
}

// RecordFailure records a failed fetch for a feed, registering it if
// needed.
func (r *Registry) RecordFailure(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f := r.ensureLocked(name)
	now := time.Now()
	f.lastFailureAt = &now
	if err != nil {
		f.lastError = err.Error()
	}
}

func (r *Registry) ensureLocked(name string) *registeredFeed {
	f, ok := r.feeds[name]
	if !ok {
		f = &registeredFeed{}
		r.feeds[name] = f
	}
	return f
}

// Health returns the health of a specific feed, or nil if unknown.
func (r *Registry) Health(name string) *FeedHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.feeds[name]
	if !ok {
		return nil
	}
	return f.health(name)
}

// AllHealth returns the health of every registered feed.
func (r *Registry) AllHealth() []*FeedHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	health := make([]*FeedHealth, 0, len(r.feeds))
	for name, f := range r.feeds {
		health = append(health, f.health(name))
	}
	return health
}

func (f *registeredFeed) health(name string) *FeedHealth {
	h := &FeedHealth{
		Name:          name,
		LastSuccessAt: f.lastSuccessAt,
		LastFailureAt: f.lastFailureAt,
		LastError:     f.lastError,
	}
	if f.client != nil {
		h.CircuitState = f.client.BreakerState()
		h.Counts = f.client.BreakerCounts()
	}
	return h
}
