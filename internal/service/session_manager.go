package service

import (
	"context"
	"sync"
	"time"

	"catalog-service/internal/availability"
	"catalog-service/internal/models"
	"catalog-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// forgetter is implemented by publishers that keep per-session state
type forgetter interface {
	Forget(ctx context.Context, sessionID string)
}

// Manager owns the open browsing sessions
type Manager struct {
	catalog        Catalog
	events         EventLogger
	publisher      Publisher
	policy         availability.Policy
	defaultChannel string
	logger         *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a new session manager
func NewManager(
	catalog Catalog,
	events EventLogger,
	publisher Publisher,
	policy availability.Policy,
	defaultChannel string,
) *Manager {
	if events == nil {
		events = nopEvents{}
	}
	return &Manager{
		catalog:        catalog,
		events:         events,
		publisher:      publisher,
		policy:         policy,
		defaultChannel: defaultChannel,
		logger:         util.GetLogger(),
		sessions:       make(map[string]*Session),
	}
}

// Policy returns the availability policy sessions are created with
func (m *Manager) Policy() availability.Policy {
	return m.policy
}

// DefaultChannel returns the channel used when a session names none
func (m *Manager) DefaultChannel() string {
	return m.defaultChannel
}

// Open creates a new session on channel and records the page view
func (m *Manager) Open(ctx context.Context, channel, page string) *Session {
	if channel == "" {
		channel = m.defaultChannel
	}

	id := uuid.New().String()
	session := NewSession(id, channel, m.catalog, m.events, m.publisher, m.policy)

	m.mu.Lock()
	m.sessions[id] = session
	util.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	m.events.LogEvent(ctx, models.EventTypePageView, map[string]interface{}{
		"session_id": id,
		"page":       page,
		"channel":    channel,
	})

	m.logger.Debug("Session opened", zap.String("session_id", id), zap.String("channel", channel))
	return session
}

// Get returns an open session
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[id]
	return session, ok
}

// Close clears a session and forgets it
func (m *Manager) Close(ctx context.Context, id string) bool {
	m.mu.Lock()
	session, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	util.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	if !ok {
		return false
	}

	session.Clear(ctx)
	if f, ok := m.publisher.(forgetter); ok {
		f.Forget(ctx, id)
	}
	return true
}

// Sweep closes sessions idle for longer than maxIdle and returns how many
// were closed.
func (m *Manager) Sweep(ctx context.Context, now time.Time, maxIdle time.Duration) int {
	m.mu.RLock()
	idle := make([]string, 0)
	for id, session := range m.sessions {
		if now.Sub(session.idleSince()) > maxIdle {
			idle = append(idle, id)
		}
	}
	m.mu.RUnlock()

	closed := 0
	for _, id := range idle {
		if m.Close(ctx, id) {
			closed++
		}
	}
	if closed > 0 {
		m.logger.Info("Closed idle sessions", zap.Int("count", closed))
	}
	return closed
}

// Len returns the number of open sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
