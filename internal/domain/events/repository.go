package events

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("event not found")

// ErrInconsistentState reports a counter adjustment against an event that does
// not exist.
var ErrInconsistentState = errors.New("event inconsistent state")

// Event is a campus event. Date and Time are display strings with no calendar
// semantics.
type Event struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Location    string `json:"location"`
	Capacity    int    `json:"capacity"`
	Registered  int    `json:"registered"`
	ImageURL    string `json:"imageUrl"`
}

// Full reports whether no seats remain.
func (e Event) Full() bool {
	return e.Registered >= e.Capacity
}

type EventCreateParams struct {
	Title       string
	Description string
	Category    string
	Date        string
	Time        string
	Location    string
	Capacity    int
	ImageURL    string
}

// DeleteResult describes what an event deletion removed.
type DeleteResult struct {
	Existed              bool
	RegistrationsRemoved int
}

type Repository interface {
	List(ctx context.Context, filters Filters) ([]Event, error)
	GetByID(ctx context.Context, id string) (*Event, error)
	Create(ctx context.Context, params EventCreateParams) (*Event, error)
	// AdjustRegistered adds delta to the registered counter without bound checks.
	AdjustRegistered(ctx context.Context, id string, delta int) error
	// Delete removes the event and every registration referencing it.
	Delete(ctx context.Context, id string) (DeleteResult, error)
}
