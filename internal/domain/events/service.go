package events

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const tracerName = "github.com/campus-events/server/internal/domain/events"

type Service struct {
	repo             Repository
	strictCategories bool
}

type Option func(*Service)

// WithStrictCategories rejects categories outside the fixed campus set on create.
func WithStrictCategories(strict bool) Option {
	return func(s *Service) {
		s.strictCategories = strict
	}
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) StrictCategories() bool {
	return s.strictCategories
}

func (s *Service) List(ctx context.Context, filters Filters) ([]Event, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) GetByID(ctx context.Context, id string) (*Event, error) {
	return s.repo.GetByID(ctx, id)
}

// Create stores a new event. The registered counter always starts at zero.
func (s *Service) Create(ctx context.Context, params EventCreateParams) (*Event, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "events.Create")
	defer span.End()

	if params.Capacity < 0 {
		return nil, FilterError{Field: "capacity", Message: "must be zero or greater"}
	}
	if s.strictCategories {
		canonical, ok := CanonicalCategory(params.Category)
		if !ok {
			return nil, FilterError{Field: "category", Message: categoryMessage()}
		}
		params.Category = canonical
	}

	event, err := s.repo.Create(ctx, params)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("create event: %w", err)
	}
	span.SetAttributes(attribute.String("event.id", event.ID))
	return event, nil
}

// Delete removes an event and its registrations. Deleting an unknown id is
// not an error.
func (s *Service) Delete(ctx context.Context, id string) (DeleteResult, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "events.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("event.id", id))

	result, err := s.repo.Delete(ctx, id)
	if err != nil {
		span.RecordError(err)
		return DeleteResult{}, fmt.Errorf("delete event %s: %w", id, err)
	}
	span.SetAttributes(attribute.Int("event.registrations_removed", result.RegistrationsRemoved))
	return result, nil
}
