package state

import (
	"sync"
	"time"
)

// State identifies a step of a conversation.
type State string

// StateIdle means no conversation is in progress.
const StateIdle State = "NONE"

type entry struct {
	state State
	since time.Time
}

// Manager stores one State per key. The zero value is not usable; call NewManager.
type Manager struct {
	mu      sync.RWMutex
	entries map[int64]entry
	ttl     time.Duration
	now     func() time.Time
}

// Option tunes a Manager.
type Option func(*Manager)

// WithTTL expires states that were not advanced for d. Zero keeps them forever.
func WithTTL(d time.Duration) Option {
	return func(m *Manager) { m.ttl = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{entries: make(map[int64]entry), now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the state for key, StateIdle when absent or expired.
func (m *Manager) Get(key int64) State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok || m.expired(e) {
		return StateIdle
	}
	return e.state
}

// Set moves key to st. Setting StateIdle forgets the key.
func (m *Manager) Set(key int64, st State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st == StateIdle {
		delete(m.entries, key)
		return
	}
	m.entries[key] = entry{state: st, since: m.now()}
}

// Transition moves key from one state to another and reports whether the
// current state matched from.
func (m *Manager) Transition(key int64, from, to State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := StateIdle
	if e, ok := m.entries[key]; ok && !m.expired(e) {
		cur = e.state
	}
	if cur != from {
		return false
	}
	if to == StateIdle {
		delete(m.entries, key)
	} else {
		m.entries[key] = entry{state: to, since: m.now()}
	}
	return true
}

// Reset returns key to StateIdle.
func (m *Manager) Reset(key int64) {
	m.Set(key, StateIdle)
}

// Active reports whether key is in a state other than StateIdle.
func (m *Manager) Active(key int64) bool {
	return m.Get(key) != StateIdle
}

func (m *Manager) expired(e entry) bool {
	return m.ttl > 0 && m.now().Sub(e.since) > m.ttl
}
