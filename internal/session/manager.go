package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/codewell/codewell/internal/store"
)

// DefaultMaxSessions is the default maximum number of concurrently tracked
// sessions, grounded on the teacher's DefaultMaxSessions ceiling.
const DefaultMaxSessions = 20

// ManagerConfig configures the session manager.
type ManagerConfig struct {
	// Store persists turns durably; required.
	Store store.Store

	// MaxSessions is the maximum number of sessions allowed. Defaults to
	// DefaultMaxSessions.
	MaxSessions int
}

// Manager handles session lifecycle operations: opening, appending turns,
// listing, and pruning stale sessions. It layers validation and an
// in-memory LastUsed cache atop internal/store's durable turn log, the
// same way internal/orchestrator layers state tracking atop the store.
type Manager struct {
	store       store.Store
	maxSessions int

	mu       sync.Mutex
	lastUsed map[string]time.Time
}

// NewManager creates a new session manager over a store.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("session: store is required")
	}
	maxSessions := cfg.MaxSessions
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	return &Manager{
		store:       cfg.Store,
		maxSessions: maxSessions,
		lastUsed:    make(map[string]time.Time),
	}, nil
}

// Open creates a new session or returns the existing one, idempotently.
func (m *Manager) Open(ctx context.Context, id string) (*Session, error) {
	if err := ValidateSessionID(id); err != nil {
		return nil, fmt.Errorf("session: invalid id: %w", err)
	}

	records, err := m.store.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("session: list sessions: %w", err)
	}
	for _, rec := range records {
		if rec.ID == id {
			return m.toSession(rec), nil
		}
	}

	if len(records) >= m.maxSessions {
		return nil, fmt.Errorf("session: maximum %d sessions reached; delete old sessions first", m.maxSessions)
	}

	if err := m.store.CreateSession(ctx, id); err != nil {
		return nil, fmt.Errorf("session: create %s: %w", id, err)
	}

	now := time.Now().UTC()
	m.mu.Lock()
	m.lastUsed[id] = now
	m.mu.Unlock()

	return &Session{ID: id, CreatedAt: now, LastUsed: now}, nil
}

// AppendTurn validates role and content, then appends a turn to id's log,
// creating the session first if it doesn't exist yet.
func (m *Manager) AppendTurn(ctx context.Context, id string, turn Turn) error {
	if err := ValidateRole(turn.Role); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	if turn.Content == "" {
		return errors.New("session: turn content cannot be empty")
	}

	if _, err := m.Open(ctx, id); err != nil {
		return err
	}
	if err := m.store.AppendTurn(ctx, id, turn); err != nil {
		return fmt.Errorf("session: append turn to %s: %w", id, err)
	}

	m.mu.Lock()
	m.lastUsed[id] = time.Now().UTC()
	m.mu.Unlock()

	return nil
}

// Log returns id's ordered turn log.
func (m *Manager) Log(ctx context.Context, id string) ([]Turn, error) {
	turns, err := m.store.SessionLog(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("session: read log for %s: %w", id, err)
	}
	return turns, nil
}

// List returns every tracked session.
func (m *Manager) List(ctx context.Context) ([]*Session, error) {
	records, err := m.store.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("session: list sessions: %w", err)
	}
	sessions := make([]*Session, 0, len(records))
	for _, rec := range records {
		sessions = append(sessions, m.toSession(rec))
	}
	return sessions, nil
}

// Get retrieves a session by id without modifying it.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	records, err := m.store.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("session: list sessions: %w", err)
	}
	for _, rec := range records {
		if rec.ID == id {
			return m.toSession(rec), nil
		}
	}
	return nil, fmt.Errorf("session: %s not found", id)
}

// Delete removes a session and its entire turn log.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.store.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("session: delete %s: %w", id, err)
	}
	m.mu.Lock()
	delete(m.lastUsed, id)
	m.mu.Unlock()
	return nil
}

// Prune removes sessions whose last-appended turn is older than olderThan.
// Returns the count of deleted sessions. Sessions with no recorded
// in-memory LastUsed (e.g. tracked by a prior process) are treated as used
// at creation time.
func (m *Manager) Prune(ctx context.Context, olderThan time.Duration) (int, error) {
	sessions, err := m.List(ctx)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, sess := range sessions {
		if sess.IsStale(olderThan) {
			if err := m.Delete(ctx, sess.ID); err != nil {
				continue
			}
			deleted++
		}
	}
	return deleted, nil
}

// toSession builds a Session from a persisted record, filling LastUsed from
// the in-memory cache when this process has seen activity for it, falling
// back to CreatedAt otherwise.
func (m *Manager) toSession(rec store.SessionRecord) *Session {
	m.mu.Lock()
	lastUsed, tracked := m.lastUsed[rec.ID]
	m.mu.Unlock()
	if !tracked {
		lastUsed = rec.CreatedAt
	}
	return &Session{ID: rec.ID, CreatedAt: rec.CreatedAt, LastUsed: lastUsed}
}
