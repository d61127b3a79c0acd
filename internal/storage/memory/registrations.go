package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/campus-events/server/internal/domain/events"
	"github.com/campus-events/server/internal/domain/registrations"
)

var _ registrations.Repository = (*RegistrationRepository)(nil)

type RegistrationRepository struct {
	store *Store
}

// Create stores a registration and increments its event counter. It applies
// no capacity or duplicate rules and fails with events.ErrInconsistentState
// when the event does not exist.
func (r *RegistrationRepository) Create(ctx context.Context, params registrations.RegistrationCreateParams) (*registrations.Registration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[params.EventID]; !ok {
		return nil, fmt.Errorf("create registration for event %s: %w", params.EventID, events.ErrInconsistentState)
	}
	return s.insertRegistrationLocked(params)
}

func (r *RegistrationRepository) Reserve(ctx context.Context, params registrations.ReserveParams) (*registrations.Registration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[params.EventID]
	if !ok {
		return nil, events.ErrNotFound
	}
	if event.Full() {
		return nil, registrations.ErrEventFull
	}
	for _, existing := range s.registrations {
		if existing.EventID == params.EventID && emailEqual(existing.StudentEmail, params.StudentEmail, params.FoldEmail) {
			return nil, registrations.ErrAlreadyRegistered
		}
	}
	return s.insertRegistrationLocked(params.RegistrationCreateParams)
}

// insertRegistrationLocked requires s.mu held for writing and an existing event.
func (s *Store) insertRegistrationLocked(params registrations.RegistrationCreateParams) (*registrations.Registration, error) {
	id, err := s.newID()
	if err != nil {
		return nil, fmt.Errorf("generate registration id: %w", err)
	}
	if _, exists := s.registrations[id]; exists {
		return nil, fmt.Errorf("registration id %s already in use", id)
	}

	reg := &registrations.Registration{
		ID:           id,
		EventID:      params.EventID,
		StudentName:  params.StudentName,
		StudentEmail: params.StudentEmail,
		StudentID:    params.StudentID,
		PhoneNumber:  copyString(params.PhoneNumber),
		RegisteredAt: s.now(),
	}
	if err := s.adjustLocked(reg.EventID, 1); err != nil {
		return nil, err
	}
	s.registrations[id] = reg
	s.regOrder = append(s.regOrder, id)
	return copyRegistration(reg), nil
}

func (r *RegistrationRepository) ListByEmail(ctx context.Context, email string, foldCase bool) ([]registrations.Registration, error) {
	return r.list(ctx, func(reg *registrations.Registration) bool {
		return emailEqual(reg.StudentEmail, email, foldCase)
	})
}

func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID string) ([]registrations.Registration, error) {
	return r.list(ctx, func(reg *registrations.Registration) bool {
		return reg.EventID == eventID
	})
}

func (r *RegistrationRepository) list(ctx context.Context, match func(*registrations.Registration) bool) ([]registrations.Registration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]registrations.Registration, 0)
	for _, id := range s.regOrder {
		reg := s.registrations[id]
		if match(reg) {
			out = append(out, *copyRegistration(reg))
		}
	}
	return out, nil
}

// Delete removes the registration and decrements its event counter. When the
// event is already gone the registration is still removed and
// events.ErrInconsistentState is returned.
func (r *RegistrationRepository) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, ok := s.registrations[id]
	if !ok {
		return false, nil
	}
	delete(s.registrations, id)
	s.regOrder = removeID(s.regOrder, id)

	if err := s.adjustLocked(reg.EventID, -1); err != nil {
		return true, fmt.Errorf("release seat on event %s: %w", reg.EventID, err)
	}
	return true, nil
}

func emailEqual(a, b string, fold bool) bool {
	if fold {
		return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
	}
	return a == b
}

func copyString(value *string) *string {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func copyRegistration(reg *registrations.Registration) *registrations.Registration {
	copied := *reg
	copied.PhoneNumber = copyString(reg.PhoneNumber)
	return &copied
}
