package registrations

import (
	"context"
	"errors"
	"time"

	"github.com/campus-events/server/internal/domain/events"
)

var (
	ErrNotFound          = errors.New("registration not found")
	ErrEventFull         = errors.New("event is fully booked")
	ErrAlreadyRegistered = errors.New("already registered for event")
)

type Registration struct {
	ID           string    `json:"id"`
	EventID      string    `json:"eventId"`
	StudentName  string    `json:"studentName"`
	StudentEmail string    `json:"studentEmail"`
	StudentID    string    `json:"studentId"`
	PhoneNumber  *string   `json:"phoneNumber"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// WithEvent is a registration joined with its event. Event is nil when the
// event no longer exists.
type WithEvent struct {
	Registration
	Event *events.Event `json:"event,omitempty"`
}

type RegistrationCreateParams struct {
	EventID      string
	StudentName  string
	StudentEmail string
	StudentID    string
	PhoneNumber  *string
}

// ReserveParams is a create request that must pass the capacity and duplicate
// checks. FoldEmail makes the duplicate check case-insensitive.
type ReserveParams struct {
	RegistrationCreateParams
	FoldEmail bool
}

type Repository interface {
	// Create stores a registration and increments its event counter with no
	// business checks.
	Create(ctx context.Context, params RegistrationCreateParams) (*Registration, error)
	// Reserve runs the event lookup, capacity check, duplicate check and
	// Create as one atomic step.
	Reserve(ctx context.Context, params ReserveParams) (*Registration, error)
	ListByEmail(ctx context.Context, email string, foldCase bool) ([]Registration, error)
	ListByEvent(ctx context.Context, eventID string) ([]Registration, error)
	// Delete removes a registration and decrements its event counter. It
	// reports false when nothing was stored under id.
	Delete(ctx context.Context, id string) (bool, error)
}

// EventReader is the slice of the events repository needed to join events
// onto registrations.
type EventReader interface {
	GetByID(ctx context.Context, id string) (*events.Event, error)
}
