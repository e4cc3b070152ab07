package session

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// ErrNoSession is returned by operations that need an open session.
var ErrNoSession = errors.New("session: no session open")

// Manager tracks the currently open session. One session is active at a
// time; opening a new one replaces the previous without touching its files.
type Manager struct {
	workingDir string
	log        zerolog.Logger

	mu      sync.Mutex
	current *Session
}

func NewManager(workingDir string, logger zerolog.Logger) *Manager {
	return &Manager{workingDir: workingDir, log: logger}
}

// Open makes the named session current, creating its directories if needed.
func (m *Manager) Open(name string) (*Session, error) {
	s, err := Open(m.workingDir, name, m.log)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()
	return s, nil
}

// Close drops the current session.
func (m *Manager) Close() {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()
}

// Current returns the open session, if any.
func (m *Manager) Current() (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.current != nil
}
