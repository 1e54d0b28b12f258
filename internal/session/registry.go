package session

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"trading-alertsv1/internal/model"
)

// Registry exclusively owns the feedKey → Session mapping. All access
// goes through it; sessions are stopped when removed or replaced.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// NewFeedKey mints an opaque, unguessable feed key. Keys are generated
// once per owning user and reused across their sessions unless a fresh
// one is requested.
func NewFeedKey() string {
	return uuid.NewString()
}

// Create builds, registers and returns a session for the feed key in
// cfg. An existing session under the same key is stopped and replaced —
// restarting a scan must not leak the previous worker.
func (r *Registry) Create(cfg Config) (*Session, error) {
	s, err := New(cfg)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	old := r.sessions[cfg.FeedKey]
	r.sessions[cfg.FeedKey] = s
	r.mu.Unlock()

	if old != nil {
		old.Stop()
	}
	return s, nil
}

// Get returns the session registered under feedKey, or nil.
func (r *Registry) Get(feedKey string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[feedKey]
}

// Remove stops and unregisters the session under feedKey, if any.
func (r *Registry) Remove(feedKey string) {
	r.mu.Lock()
	s := r.sessions[feedKey]
	delete(r.sessions, feedKey)
	r.mu.Unlock()

	if s != nil {
		s.Stop()
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Route submits a candle to the session under feedKey. The second
// return is false when no session exists — an inert outcome, not an
// error, so upstream senders never see a fault for a paused scan.
func (r *Registry) Route(feedKey string, c model.Candle) (accepted, found bool) {
	s := r.Get(feedKey)
	if s == nil {
		return false, false
	}
	return s.Submit(c), true
}

// StopAll stops and removes every session. Used at shutdown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	victims := make([]*Session, 0, len(r.sessions))
	for key, s := range r.sessions {
		delete(r.sessions, key)
		victims = append(victims, s)
	}
	r.mu.Unlock()

	for _, s := range victims {
		s.Stop()
	}
}

// SweepIdle stops and removes sessions idle longer than ttl. Returns
// how many were evicted. A ttl of 0 disables sweeping.
func (r *Registry) SweepIdle(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}

	r.mu.Lock()
	var victims []*Session
	for key, s := range r.sessions {
		if s.IdleFor() > ttl {
			delete(r.sessions, key)
			victims = append(victims, s)
		}
	}
	r.mu.Unlock()

	for _, s := range victims {
		log.Printf("[registry] evicting idle session %s (%s %s)", s.FeedKey, s.Symbol, s.Timeframe)
		s.Stop()
	}
	return len(victims)
}
