// Package eventlog holds the in-memory activity log and notifies observers
// whenever it grows. The log lives for the lifetime of the process.
package eventlog

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"readinglab-backend/internal/models"
)

type Option func(*Store)

// WithClock overrides the time source used to stamp events.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides the event id source.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// Store is an append-only event sequence. Reads are newest first.
type Store struct {
	mu     sync.Mutex
	events []models.Event // insertion order, oldest first
	lastTS int64

	now    func() time.Time
	newID  func() string
	broker *Broker
}

func New(opts ...Option) *Store {
	s := &Store{
		now:    time.Now,
		newID:  func() string { return ulid.Make().String() },
		broker: NewBroker(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append stamps the entry with an id and a timestamp, stores it and notifies
// observers before returning. Callers validate the actor beforehand.
func (s *Store) Append(entry models.Entry) models.Event {
	s.mu.Lock()
	ts := s.now().UnixMilli()
	if ts < s.lastTS {
		ts = s.lastTS
	}
	s.lastTS = ts

	ev := models.Event{
		ID:         s.newID(),
		Timestamp:  ts,
		UserID:     entry.UserID,
		UserName:   entry.UserName,
		Action:     entry.Action,
		Details:    entry.Details,
		MaterialID: entry.MaterialID,
	}
	s.events = append(s.events, ev)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	// Unlocked so observers can read or append themselves.
	s.broker.Publish(snap)
	return ev
}

// Log records an action on behalf of user.
func (s *Store) Log(user models.User, action models.Action, details, materialID string) models.Event {
	return s.Append(models.Entry{
		UserID:     user.ID,
		UserName:   user.Name,
		Action:     action,
		Details:    details,
		MaterialID: materialID,
	})
}

// Snapshot returns a copy of the log, newest first.
func (s *Store) Snapshot() []models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() []models.Event {
	out := make([]models.Event, len(s.events))
	for i, ev := range s.events {
		out[len(s.events)-1-i] = ev
	}
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// Subscribe registers an observer for future appends. Call Snapshot first for
// history; observers never see events appended before they subscribed.
func (s *Store) Subscribe(fn Observer) (unsubscribe func()) {
	return s.broker.Subscribe(fn)
}

func (s *Store) Observers() int {
	return s.broker.Count()
}
