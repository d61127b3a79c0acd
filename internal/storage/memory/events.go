package memory

import (
	"context"
	"fmt"

	"github.com/campus-events/server/internal/domain/events"
)

var _ events.Repository = (*EventRepository)(nil)

type EventRepository struct {
	store *Store
}

// List returns matching events in insertion order.
func (r *EventRepository) List(ctx context.Context, filters events.Filters) ([]events.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]events.Event, 0, len(s.eventOrder))
	for _, id := range s.eventOrder {
		event := s.events[id]
		if filters.Matches(*event) {
			out = append(out, *event)
		}
	}
	return out, nil
}

func (r *EventRepository) GetByID(ctx context.Context, id string) (*events.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, ok := s.events[id]
	if !ok {
		return nil, events.ErrNotFound
	}
	copied := *event
	return &copied, nil
}

func (r *EventRepository) Create(ctx context.Context, params events.EventCreateParams) (*events.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	id, err := s.newID()
	if err != nil {
		return nil, fmt.Errorf("generate event id: %w", err)
	}

	event := &events.Event{
		ID:          id,
		Title:       params.Title,
		Description: params.Description,
		Category:    params.Category,
		Date:        params.Date,
		Time:        params.Time,
		Location:    params.Location,
		Capacity:    params.Capacity,
		Registered:  0,
		ImageURL:    params.ImageURL,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.events[id]; exists {
		return nil, fmt.Errorf("event id %s already in use", id)
	}
	s.events[id] = event
	s.eventOrder = append(s.eventOrder, id)

	copied := *event
	return &copied, nil
}

// AdjustRegistered returns events.ErrInconsistentState for an unknown event.
// The counter is not bounded by zero or capacity.
func (r *EventRepository) AdjustRegistered(ctx context.Context, id string, delta int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adjustLocked(id, delta)
}

func (r *EventRepository) Delete(ctx context.Context, id string) (events.DeleteResult, error) {
	if err := ctx.Err(); err != nil {
		return events.DeleteResult{}, err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return events.DeleteResult{}, nil
	}
	delete(s.events, id)
	s.eventOrder = removeID(s.eventOrder, id)

	result := events.DeleteResult{Existed: true}
	kept := s.regOrder[:0]
	for _, regID := range s.regOrder {
		if s.registrations[regID].EventID == id {
			delete(s.registrations, regID)
			result.RegistrationsRemoved++
			continue
		}
		kept = append(kept, regID)
	}
	s.regOrder = kept
	return result, nil
}
