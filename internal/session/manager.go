package session

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"readinglab-backend/internal/models"
)

var (
	ErrSessionNotFound = errors.New("session: not found")
	ErrForbidden       = errors.New("session: belongs to another user")
)

// Info describes an open session for API responses.
type Info struct {
	ID         uuid.UUID `json:"id"`
	UserID     string    `json:"user_id"`
	MaterialID string    `json:"material_id"`
	StartedAt  time.Time `json:"started_at"`
	LastActive time.Time `json:"last_active_at"`
	Progress   int       `json:"scroll_progress_percent"`
}

// Manager keeps the server-side trackers of every open material view.
type Manager struct {
	mu          sync.Mutex
	logger      Logger
	sessions    map[uuid.UUID]*Tracker
	idleTimeout time.Duration
	now         func() time.Time
}

type ManagerOption func(*Manager)

func WithManagerClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func NewManager(logger Logger, idleTimeout time.Duration, opts ...ManagerOption) *Manager {
	m := &Manager{
		logger:      logger,
		sessions:    make(map[uuid.UUID]*Tracker),
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open starts a view. A view the same user still has open on the same
// material is closed first. The whole swap happens under m.mu so concurrent
// opens of one material by one user leave exactly one view registered.
func (m *Manager) Open(user models.User, material models.Material) (uuid.UUID, *Tracker, error) {
	if user.ID == "" {
		return uuid.Nil, nil, ErrMissingUser
	}
	if material.ID == "" {
		return uuid.Nil, nil, ErrMissingMaterial
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, t := range m.sessions {
		if t.user.ID == user.ID && t.material.ID == material.ID {
			delete(m.sessions, id)
			t.Close()
		}
	}

	t, err := Open(m.logger, user, material, WithClock(m.now))
	if err != nil {
		return uuid.Nil, nil, err
	}

	id := uuid.New()
	m.sessions[id] = t
	return id, t, nil
}

// Get returns the tracker for id if it belongs to userID.
func (m *Manager) Get(id uuid.UUID, userID string) (*Tracker, error) {
	m.mu.Lock()
	t, ok := m.sessions[id]
	m.mu.Unlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	if t.user.ID != userID {
		return nil, ErrForbidden
	}
	return t, nil
}

func (m *Manager) Info(id uuid.UUID, userID string) (Info, error) {
	t, err := m.Get(id, userID)
	if err != nil {
		return Info{}, err
	}
	return Info{
		ID:         id,
		UserID:     t.user.ID,
		MaterialID: t.material.ID,
		StartedAt:  t.StartedAt(),
		LastActive: t.LastActive(),
		Progress:   t.Progress(),
	}, nil
}

func (m *Manager) Heartbeat(id uuid.UUID, userID string) error {
	t, err := m.Get(id, userID)
	if err != nil {
		return err
	}
	if err := t.Touch(); err != nil {
		return ErrSessionNotFound
	}
	return nil
}

// Close ends the view and forgets it.
func (m *Manager) Close(id uuid.UUID, userID string) (models.CloseDetails, error) {
	m.mu.Lock()
	t, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return models.CloseDetails{}, ErrSessionNotFound
	}
	if t.user.ID != userID {
		m.mu.Unlock()
		return models.CloseDetails{}, ErrForbidden
	}
	delete(m.sessions, id)
	m.mu.Unlock()

	return t.Close(), nil
}

// CloseAll closes every open view. Used on shutdown.
func (m *Manager) CloseAll() int {
	return m.closeWhere(func(*Tracker) bool { return true })
}

// CloseUser closes every view userID has open, e.g. on sign-out.
func (m *Manager) CloseUser(userID string) int {
	return m.closeWhere(func(t *Tracker) bool { return t.user.ID == userID })
}

func (m *Manager) closeWhere(match func(*Tracker) bool) int {
	m.mu.Lock()
	var open []*Tracker
	for id, t := range m.sessions {
		if match(t) {
			open = append(open, t)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, t := range open {
		t.Close()
	}
	return len(open)
}

// ReapIdle closes views with no activity for longer than the idle timeout.
// Their duration runs to the last activity, not to now.
func (m *Manager) ReapIdle() int {
	if m.idleTimeout <= 0 {
		return 0
	}

	cutoff := m.now().Add(-m.idleTimeout)

	m.mu.Lock()
	var idle []*Tracker
	for id, t := range m.sessions {
		if t.LastActive().Before(cutoff) {
			idle = append(idle, t)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, t := range idle {
		d := t.closeAt(t.LastActive())
		log.Printf("session: reaped idle view of %s by %s after %ds", t.material.ID, t.user.ID, d.DurationSeconds)
	}
	return len(idle)
}

func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
