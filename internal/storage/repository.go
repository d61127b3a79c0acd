package storage

import (
	"context"

	"github.com/campus-events/server/internal/domain/events"
	"github.com/campus-events/server/internal/domain/registrations"
)

// Repository groups data access by domain.
type Repository interface {
	Events() events.Repository
	Registrations() registrations.Repository

	Stats(ctx context.Context) (Stats, error)
	Ping(ctx context.Context) error
}

// Stats is a point-in-time summary of stored state.
type Stats struct {
	Events        int
	Registrations int
	FullEvents    int
	SeatsTotal    int
	SeatsTaken    int
}
