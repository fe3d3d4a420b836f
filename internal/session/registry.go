package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNotFound is returned for operations that reference an unknown session id.
var ErrNotFound = errors.New("session not found")

// Registry is the single source of truth for the set of live sessions.
// Session ids are assigned monotonically and never reused within the life of
// the process.
type Registry struct {
	mu       sync.RWMutex
	sessions map[int]*Session
	nextID   int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[int]*Session)}
}

// Create adds a new session with a fresh id and default configuration.
func (r *Registry) Create() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	s := New(r.nextID)
	r.sessions[s.ID] = s
	return s
}

// Get retrieves a session by id.
func (r *Registry) Get(id int) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove deletes a session. The caller must have disconnected it first; the
// registry only checks existence.
func (r *Registry) Remove(id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return fmt.Errorf("remove session %d: %w", id, ErrNotFound)
	}
	delete(r.sessions, id)
	return nil
}

// All returns a snapshot of the live sessions ordered by id. The returned
// sessions are shared references; callers read them through their own locks.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
