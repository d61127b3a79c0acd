package registrations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/campus-events/server/internal/domain/events"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const tracerName = "github.com/campus-events/server/internal/domain/registrations"

type Service struct {
	repo      Repository
	events    EventReader
	foldEmail bool
}

type Option func(*Service)

// WithCaseInsensitiveEmail folds email case for duplicate detection and
// student lookups.
func WithCaseInsensitiveEmail(fold bool) Option {
	return func(s *Service) {
		s.foldEmail = fold
	}
}

func NewService(repo Repository, eventReader EventReader, opts ...Option) *Service {
	s := &Service{repo: repo, events: eventReader}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a registration for an existing event with free capacity.
// It returns events.ErrNotFound, ErrEventFull or ErrAlreadyRegistered when the
// corresponding rule rejects the request.
func (s *Service) Register(ctx context.Context, params RegistrationCreateParams) (*Registration, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "registrations.Register")
	defer span.End()
	span.SetAttributes(attribute.String("event.id", params.EventID))

	params.PhoneNumber = normalizePhone(params.PhoneNumber)

	reg, err := s.repo.Reserve(ctx, ReserveParams{RegistrationCreateParams: params, FoldEmail: s.foldEmail})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("register for event %s: %w", params.EventID, err)
	}
	span.SetAttributes(attribute.String("registration.id", reg.ID))
	return reg, nil
}

// ListForStudent returns the student's registrations joined with their events.
// A registration whose event is gone is returned without one.
func (s *Service) ListForStudent(ctx context.Context, email string) ([]WithEvent, error) {
	regs, err := s.repo.ListByEmail(ctx, email, s.foldEmail)
	if err != nil {
		return nil, fmt.Errorf("list registrations for student: %w", err)
	}

	out := make([]WithEvent, 0, len(regs))
	for _, reg := range regs {
		item := WithEvent{Registration: reg}
		event, err := s.events.GetByID(ctx, reg.EventID)
		switch {
		case err == nil:
			item.Event = event
		case errors.Is(err, events.ErrNotFound):
			// event deleted; keep the registration unjoined
		default:
			return nil, fmt.Errorf("load event %s: %w", reg.EventID, err)
		}
		out = append(out, item)
	}
	return out, nil
}

// ListForEvent returns the registrations of an existing event.
func (s *Service) ListForEvent(ctx context.Context, eventID string) ([]Registration, error) {
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	regs, err := s.repo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list registrations for event %s: %w", eventID, err)
	}
	return regs, nil
}

// Cancel deletes a registration and reports whether one was stored under id.
// Unknown ids succeed without side effects.
func (s *Service) Cancel(ctx context.Context, id string) (bool, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "registrations.Cancel")
	defer span.End()
	span.SetAttributes(attribute.String("registration.id", id))

	removed, err := s.repo.Delete(ctx, id)
	if errors.Is(err, events.ErrInconsistentState) {
		zerolog.Ctx(ctx).Warn().
			Err(err).
			Str("registration_id", id).
			Msg("registration removed but its event was missing")
		return removed, nil
	}
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("cancel registration %s: %w", id, err)
	}
	span.SetAttributes(attribute.Bool("registration.existed", removed))
	return removed, nil
}

func normalizePhone(phone *string) *string {
	if phone == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*phone)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
