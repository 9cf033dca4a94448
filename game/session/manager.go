package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/typing-arena/game/engine"
	"github.com/wricardo/typing-arena/game/protocol"
	"github.com/wricardo/typing-arena/game/service"
	"github.com/wricardo/typing-arena/logger"
	"github.com/wricardo/typing-arena/metrics"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

// Manager handles game session lifecycle. Every session owns a running
// engine.Manager whose request loop is stopped on delete.
type Manager struct {
	sessions map[string]*service.Session
	options  []engine.Option
	onStop   func(id string)
	log      *slog.Logger
	mu       sync.RWMutex
}

// NewManager creates a new session manager. The options are applied to
// every game it creates.
func NewManager(opts ...engine.Option) *Manager {
	return &Manager{
		sessions: make(map[string]*service.Session),
		options:  opts,
		log:      logger.Get(),
	}
}

// OnStop registers fn to run whenever a session is stopped, by Delete, by
// expiry or by StopAll. It runs with the manager locked and must not call
// back into it.
func (m *Manager) OnStop(fn func(id string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStop = fn
}

// Create starts a new game with the given ID and configuration
func (m *Manager) Create(id string, config *engine.GameConfig) (*service.Session, error) {
	if id == "" {
		id = m.generateSessionID()
	}
	if strings.ContainsAny(id, "/ ") {
		return nil, ErrInvalidSessionID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Check if session already exists (case-insensitive)
	if m.sessionExists(id) {
		return nil, ErrSessionAlreadyExists
	}

	log := m.log.With("session", id)
	opts := append([]engine.Option{
		engine.WithLogger(log),
		engine.WithOnOver(func(standings []protocol.Standing) {
			log.Info("session finished", "winner", standings[0].Name)
		}),
	}, m.options...)
	game, err := engine.NewManager(config, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go game.Run(ctx)

	session := &service.Session{
		ID:             id,
		Game:           game,
		Config:         config,
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
		Stop:           cancel,
	}
	m.sessions[strings.ToLower(id)] = session
	metrics.GamesActive.Inc()
	log.Info("session created", "config", config.Name)

	return session, nil
}

// Get retrieves a session by ID (case-insensitive)
func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// GetOrCreate gets an existing session or creates a new one
func (m *Manager) GetOrCreate(id string, config *engine.GameConfig) (*service.Session, error) {
	session, err := m.Get(id)
	if err == nil {
		return session, nil
	}
	if errors.Is(err, ErrSessionNotFound) {
		return m.Create(id, config)
	}
	return nil, err
}

// List returns all active sessions
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

// Delete stops and removes a session
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lowerID := strings.ToLower(id)
	session, exists := m.sessions[lowerID]
	if !exists {
		return ErrSessionNotFound
	}
	m.stop(session)
	delete(m.sessions, lowerID)
	return nil
}

func (m *Manager) stop(session *service.Session) {
	if session.Stop != nil {
		session.Stop()
	}
	if m.onStop != nil {
		m.onStop(session.ID)
	}
	metrics.GamesActive.Dec()
	m.log.Info("session stopped", "session", session.ID)
}

// UpdateLastAccessed updates the last accessed time for a session
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return ErrSessionNotFound
	}
	session.LastAccessedAt = time.Now()
	return nil
}

// CleanupExpiredSessions stops sessions that haven't been accessed in the given duration
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, session := range m.sessions {
		if session.LastAccessedAt.Before(cutoff) {
			m.stop(session)
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// StartCleanup runs CleanupExpiredSessions every interval until ctx is done
func (m *Manager) StartCleanup(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := m.CleanupExpiredSessions(maxAge); n > 0 {
					m.log.Info("expired sessions removed", "count", n)
				}
			}
		}
	}()
}

// StopAll stops every session, used on shutdown
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, session := range m.sessions {
		m.stop(session)
		delete(m.sessions, id)
	}
}

// Count returns the number of active sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// generateSessionID generates a random 4-character session ID
func (m *Manager) generateSessionID() string {
	for {
		// Generate 2 random bytes (4 hex characters)
		bytes := make([]byte, 2)
		rand.Read(bytes)
		id := hex.EncodeToString(bytes)
		m.mu.RLock()
		taken := m.sessionExists(id)
		m.mu.RUnlock()
		if !taken {
			return id
		}
	}
}

// sessionExists checks if a session exists (case-insensitive)
func (m *Manager) sessionExists(id string) bool {
	_, exists := m.sessions[strings.ToLower(id)]
	return exists
}
