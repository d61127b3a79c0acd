package memory

import (
	"context"
	"sync"
	"time"

	"github.com/campus-events/server/internal/domain/events"
	"github.com/campus-events/server/internal/domain/ids"
	"github.com/campus-events/server/internal/domain/registrations"
	"github.com/campus-events/server/internal/storage"
)

var _ storage.Repository = (*Store)(nil)

const pingPollInterval = 5 * time.Millisecond

// Store keeps events and registrations in process memory. A single mutex
// guards both collections so that multi-step operations such as Reserve and
// cascading deletes are atomic. Callers always receive copies.
type Store struct {
	mu sync.RWMutex

	events     map[string]*events.Event
	eventOrder []string

	registrations map[string]*registrations.Registration
	regOrder      []string

	now   func() time.Time
	newID func() (string, error)

	eventRepo *EventRepository
	regRepo   *RegistrationRepository
}

type Option func(*Store)

// WithClock overrides the registration timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithIDGenerator overrides identifier minting.
func WithIDGenerator(newID func() (string, error)) Option {
	return func(s *Store) {
		s.newID = newID
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		events:        make(map[string]*events.Event),
		registrations: make(map[string]*registrations.Registration),
		now:           func() time.Time { return time.Now().UTC() },
		newID:         ids.NewULID,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.eventRepo = &EventRepository{store: s}
	s.regRepo = &RegistrationRepository{store: s}
	return s
}

func (s *Store) Events() events.Repository {
	return s.eventRepo
}

func (s *Store) Registrations() registrations.Repository {
	return s.regRepo
}

// Ping reports whether the store lock can be acquired before ctx ends. A
// writer that never releases surfaces as ctx's error.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ticker := time.NewTicker(pingPollInterval)
	defer ticker.Stop()
	for {
		if s.mu.TryRLock() {
			s.mu.RUnlock()
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Store) Stats(ctx context.Context) (storage.Stats, error) {
	if err := ctx.Err(); err != nil {
		return storage.Stats{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := storage.Stats{
		Events:        len(s.events),
		Registrations: len(s.registrations),
	}
	for _, event := range s.events {
		stats.SeatsTotal += event.Capacity
		stats.SeatsTaken += event.Registered
		if event.Full() {
			stats.FullEvents++
		}
	}
	return stats, nil
}

// adjustLocked requires s.mu held for writing.
func (s *Store) adjustLocked(eventID string, delta int) error {
	event, ok := s.events[eventID]
	if !ok {
		return events.ErrInconsistentState
	}
	event.Registered += delta
	return nil
}

func removeID(order []string, id string) []string {
	for i, value := range order {
		if value == id {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}
