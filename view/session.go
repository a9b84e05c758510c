package view

import (
	"sync"

	"threadview/sendgate"
)

// Session bundles the per-user client state: the open thread view, the
// compose box and its verification widget adapter.
type Session struct {
	View     *ThreadView
	Composer *Composer
	Widget   *sendgate.WidgetSource
}

// SessionFactory builds a fresh session for an authenticated owner.
type SessionFactory func(owner string, identity *sendgate.Identity) *Session

// Manager hands out one session per owner, creating them on demand.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	factory  SessionFactory
}

// NewManager creates a session manager around the factory.
func NewManager(factory SessionFactory) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		factory:  factory,
	}
}

// Get returns the owner's session, creating it on first use.
func (m *Manager) Get(owner string, identity *sendgate.Identity) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[owner]; ok {
		return s
	}
	s := m.factory(owner, identity)
	m.sessions[owner] = s
	return s
}

// Close tears down every session's pipeline.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for owner, s := range m.sessions {
		s.Composer.Close()
		delete(m.sessions, owner)
	}
}
