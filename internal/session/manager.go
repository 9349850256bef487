package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Factory builds the session for a new id.
type Factory func(id string) *Session

// Manager keeps the sessions of a server keyed by id. Sessions that are
// neither held nor used within the idle window are dropped by Sweep.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry
	factory  Factory
	now      func() time.Time
}

type entry struct {
	sess     *Session
	lastSeen time.Time
	holds    int
}

// NewManager creates a manager that builds sessions with factory.
func NewManager(factory Factory) *Manager {
	return &Manager{
		sessions: make(map[string]*entry),
		factory:  factory,
		now:      time.Now,
	}
}

// NewID returns a fresh session id.
func NewID() string {
	return uuid.NewString()
}

// Get returns the session for id, if any, and marks it as used.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = m.now()
	return e.sess, true
}

// GetOrCreate returns the session for id, creating and loading it on first
// use. An empty id is replaced by a fresh one. The bool reports creation.
func (m *Manager) GetOrCreate(ctx context.Context, id string) (*Session, bool) {
	if id == "" {
		id = NewID()
	}

	m.mu.Lock()
	if e, ok := m.sessions[id]; ok {
		e.lastSeen = m.now()
		m.mu.Unlock()
		return e.sess, false
	}
	s := m.factory(id)
	m.sessions[id] = &entry{sess: s, lastSeen: m.now()}
	m.mu.Unlock()

	// a failed listing is already surfaced as a toast
	_ = s.Load(ctx)
	return s, true
}

// Hold keeps the session for id alive until the returned release is called.
// Long-lived streams hold the session they render.
func (m *Manager) Hold(id string) (release func()) {
	m.mu.Lock()
	if e, ok := m.sessions[id]; ok {
		e.holds++
	}
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if e, ok := m.sessions[id]; ok && e.holds > 0 {
				e.holds--
				e.lastSeen = m.now()
			}
		})
	}
}

// Sweep drops every session that is not held and was last used more than
// maxIdle ago. It returns the ids it dropped.
func (m *Manager) Sweep(maxIdle time.Duration) []string {
	m.mu.Lock()
	cutoff := m.now().Add(-maxIdle)
	var dropped []*Session
	var ids []string
	for id, e := range m.sessions {
		if e.holds > 0 || e.lastSeen.After(cutoff) {
			continue
		}
		delete(m.sessions, id)
		dropped = append(dropped, e.sess)
		ids = append(ids, id)
	}
	m.mu.Unlock()

	// background work of dropped sessions must not outlive them
	for _, s := range dropped {
		s.Wait()
	}
	return ids
}

// Remove forgets a session.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Each calls fn for every session.
func (m *Manager) Each(fn func(*Session)) {
	m.mu.Lock()
	list := make([]*Session, 0, len(m.sessions))
	for _, e := range m.sessions {
		list = append(list, e.sess)
	}
	m.mu.Unlock()

	for _, s := range list {
		fn(s)
	}
}

// Wait blocks until all sessions finished their background work.
func (m *Manager) Wait() {
	m.Each(func(s *Session) { s.Wait() })
}
