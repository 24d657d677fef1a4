package sessions

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"memory-game-server/config"
	"memory-game-server/game"
)

// Manager keeps the live sessions of this process. Entries are removed as
// soon as a session's loop stops; nothing outlives the process.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*game.Session
	config   *config.Config
}

// NewManager creates an empty Manager.
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		sessions: make(map[string]*game.Session),
		config:   cfg,
	}
}

// Start creates a session for ownerID (empty for anonymous play), runs it
// and registers it until it stops. send receives the session's messages.
// MaxSessions of 0 means no limit.
func (m *Manager) Start(ownerID string, send chan []byte) (*game.Session, error) {
	m.mu.Lock()
	if limit := m.config.MaxSessions; limit > 0 && len(m.sessions) >= limit {
		m.mu.Unlock()
		return nil, fmt.Errorf("start session: %w (limit %d)", ErrTooManySessions, limit)
	}
	s := game.NewSession(uuid.NewString(), m.config, send)
	s.OwnerID = ownerID
	m.sessions[s.ID] = s
	total := len(m.sessions)
	m.mu.Unlock()

	slog.Info("session started", "tag", "sessions", "session", s.ID, "owner", ownerID, "active", total)

	go s.Run()
	go m.reap(s)
	return s, nil
}

func (m *Manager) reap(s *game.Session) {
	<-s.Done
	m.mu.Lock()
	delete(m.sessions, s.ID)
	total := len(m.sessions)
	m.mu.Unlock()
	slog.Info("session ended", "tag", "sessions", "session", s.ID, "active", total)
}

// Get returns the live session with the given ID.
func (m *Manager) Get(id string) (*game.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("get %q: %w", id, ErrSessionNotFound)
}

// GetOwned is Get plus an ownership check. An empty userID skips the check.
func (m *Manager) GetOwned(id, userID string) (*game.Session, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	if userID != "" && s.OwnerID != userID {
		return nil, fmt.Errorf("get %q: %w", id, ErrNotOwner)
	}
	return s, nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CloseAll stops every live session. Used on server shutdown.
func (m *Manager) CloseAll() {
	m.mu.RLock()
	live := make([]*game.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		live = append(live, s)
	}
	m.mu.RUnlock()
	for _, s := range live {
		s.Close()
	}
}
