package registrations

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/campus-events/server/internal/domain/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	reserveFn     func(context.Context, ReserveParams) (*Registration, error)
	listByEmailFn func(context.Context, string, bool) ([]Registration, error)
	listByEventFn func(context.Context, string) ([]Registration, error)
	deleteFn      func(context.Context, string) (bool, error)

	lastReserve ReserveParams
	lastFold    bool
}

func (s *stubRepo) Create(_ context.Context, params RegistrationCreateParams) (*Registration, error) {
	return &Registration{ID: "reg", EventID: params.EventID}, nil
}

func (s *stubRepo) Reserve(ctx context.Context, params ReserveParams) (*Registration, error) {
	s.lastReserve = params
	if s.reserveFn == nil {
		return &Registration{ID: "reg", EventID: params.EventID, StudentEmail: params.StudentEmail, PhoneNumber: params.PhoneNumber}, nil
	}
	return s.reserveFn(ctx, params)
}

func (s *stubRepo) ListByEmail(ctx context.Context, email string, foldCase bool) ([]Registration, error) {
	s.lastFold = foldCase
	if s.listByEmailFn == nil {
		return nil, nil
	}
	return s.listByEmailFn(ctx, email, foldCase)
}

func (s *stubRepo) ListByEvent(ctx context.Context, eventID string) ([]Registration, error) {
	if s.listByEventFn == nil {
		return nil, nil
	}
	return s.listByEventFn(ctx, eventID)
}

func (s *stubRepo) Delete(ctx context.Context, id string) (bool, error) {
	if s.deleteFn == nil {
		return false, nil
	}
	return s.deleteFn(ctx, id)
}

type stubEvents map[string]*events.Event

func (s stubEvents) GetByID(_ context.Context, id string) (*events.Event, error) {
	if event, ok := s[id]; ok {
		return event, nil
	}
	return nil, events.ErrNotFound
}

func ptr(value string) *string {
	return &value
}

func TestRegisterNormalizesPhone(t *testing.T) {
	tests := []struct {
		name  string
		phone *string
		want  *string
	}{
		{name: "absent", phone: nil, want: nil},
		{name: "blank", phone: ptr("   "), want: nil},
		{name: "trimmed", phone: ptr(" 555-0100 "), want: ptr("555-0100")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &stubRepo{}
			service := NewService(repo, stubEvents{})

			reg, err := service.Register(context.Background(), RegistrationCreateParams{EventID: "evt", PhoneNumber: tt.phone})

			require.NoError(t, err)
			require.Equal(t, tt.want, reg.PhoneNumber)
		})
	}
}

func TestRegisterPassesEmailPolicy(t *testing.T) {
	repo := &stubRepo{}

	_, err := NewService(repo, stubEvents{}).Register(context.Background(), RegistrationCreateParams{EventID: "evt"})
	require.NoError(t, err)
	require.False(t, repo.lastReserve.FoldEmail)

	_, err = NewService(repo, stubEvents{}, WithCaseInsensitiveEmail(true)).Register(context.Background(), RegistrationCreateParams{EventID: "evt"})
	require.NoError(t, err)
	require.True(t, repo.lastReserve.FoldEmail)
}

func TestRegisterWrapsSentinels(t *testing.T) {
	for _, sentinel := range []error{events.ErrNotFound, ErrEventFull, ErrAlreadyRegistered} {
		t.Run(sentinel.Error(), func(t *testing.T) {
			repo := &stubRepo{reserveFn: func(context.Context, ReserveParams) (*Registration, error) {
				return nil, sentinel
			}}

			_, err := NewService(repo, stubEvents{}).Register(context.Background(), RegistrationCreateParams{EventID: "evt"})

			require.ErrorIs(t, err, sentinel)
		})
	}
}

func TestListForStudentJoinsEvents(t *testing.T) {
	eventsByID := stubEvents{"evt-1": {ID: "evt-1", Title: "Career Fair 2025"}}
	repo := &stubRepo{listByEmailFn: func(_ context.Context, email string, _ bool) ([]Registration, error) {
		return []Registration{
			{ID: "reg-1", EventID: "evt-1", StudentEmail: email},
			{ID: "reg-2", EventID: "gone", StudentEmail: email},
		}, nil
	}}

	items, err := NewService(repo, eventsByID, WithCaseInsensitiveEmail(true)).ListForStudent(context.Background(), "a@campus.edu")

	require.NoError(t, err)
	require.True(t, repo.lastFold)
	require.Len(t, items, 2)
	require.NotNil(t, items[0].Event)
	require.Equal(t, "Career Fair 2025", items[0].Event.Title)
	require.Nil(t, items[1].Event)
}

func TestListForStudentEmpty(t *testing.T) {
	items, err := NewService(&stubRepo{}, stubEvents{}).ListForStudent(context.Background(), "nobody@campus.edu")

	require.NoError(t, err)
	require.NotNil(t, items)
	require.Empty(t, items)
}

type failingEvents struct{ err error }

func (f failingEvents) GetByID(context.Context, string) (*events.Event, error) {
	return nil, f.err
}

func TestListForStudentEventLookupFailure(t *testing.T) {
	boom := errors.New("boom")
	repo := &stubRepo{listByEmailFn: func(context.Context, string, bool) ([]Registration, error) {
		return []Registration{{ID: "reg-1", EventID: "evt-1"}}, nil
	}}

	_, err := NewService(repo, failingEvents{err: boom}).ListForStudent(context.Background(), "a@campus.edu")

	require.ErrorIs(t, err, boom)
}

func TestListForEvent(t *testing.T) {
	repo := &stubRepo{listByEventFn: func(_ context.Context, eventID string) ([]Registration, error) {
		return []Registration{{ID: "reg-1", EventID: eventID}}, nil
	}}
	service := NewService(repo, stubEvents{"evt-1": {ID: "evt-1"}})

	regs, err := service.ListForEvent(context.Background(), "evt-1")
	require.NoError(t, err)
	require.Len(t, regs, 1)

	_, err = service.ListForEvent(context.Background(), "missing")
	require.ErrorIs(t, err, events.ErrNotFound)
}

func TestCancel(t *testing.T) {
	t.Run("unknown id succeeds", func(t *testing.T) {
		removed, err := NewService(&stubRepo{}, stubEvents{}).Cancel(context.Background(), "missing")
		require.NoError(t, err)
		assert.False(t, removed)
	})

	t.Run("missing owner event is tolerated", func(t *testing.T) {
		repo := &stubRepo{deleteFn: func(context.Context, string) (bool, error) {
			return true, fmt.Errorf("adjust: %w", events.ErrInconsistentState)
		}}
		removed, err := NewService(repo, stubEvents{}).Cancel(context.Background(), "reg")
		require.NoError(t, err)
		assert.True(t, removed)
	})

	t.Run("other errors surface", func(t *testing.T) {
		boom := errors.New("boom")
		repo := &stubRepo{deleteFn: func(context.Context, string) (bool, error) {
			return false, boom
		}}
		_, err := NewService(repo, stubEvents{}).Cancel(context.Background(), "reg")
		require.ErrorIs(t, err, boom)
	})
}
