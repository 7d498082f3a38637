package bookings

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"courtly/internal/catalog"
	"courtly/internal/notifications"
	"courtly/internal/shared/apperror"

	"gorm.io/gorm"
)

// MockRepository is an in-memory Repository.
type MockRepository struct {
	bookings      map[int64]*CourtBooking
	nextID        int64
	statusUpdates int
}

func NewMockRepository(seed ...*CourtBooking) *MockRepository {
	m := &MockRepository{bookings: map[int64]*CourtBooking{}, nextID: 100}
	for _, b := range seed {
		m.bookings[b.ID] = b
	}
	return m
}

func (m *MockRepository) Create(ctx context.Context, booking *CourtBooking) error {
	m.nextID++
	booking.ID = m.nextID
	for i := range booking.Slots {
		booking.Slots[i].ID = m.nextID*10 + int64(i)
		booking.Slots[i].BookingID = booking.ID
	}
	m.bookings[booking.ID] = booking
	return nil
}

func (m *MockRepository) GetByID(ctx context.Context, id int64) (*CourtBooking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return nil, apperror.Newf(apperror.ErrReferenceNotFound, "booking %d not found", id)
	}
	cp := *b
	return &cp, nil
}

func (m *MockRepository) GetByIDForUpdate(ctx context.Context, id int64) (*CourtBooking, error) {
	return m.GetByID(ctx, id)
}

func (m *MockRepository) UpdateStatus(ctx context.Context, id int64, status Status, cancelledAt *time.Time, actor string) error {
	b, ok := m.bookings[id]
	if !ok {
		return apperror.Newf(apperror.ErrReferenceNotFound, "booking %d not found", id)
	}
	m.statusUpdates++
	b.Status = status
	b.CancelledAt = cancelledAt
	b.CancelledBy = actor
	b.Version++
	return nil
}

func (m *MockRepository) UpdateCourtTime(ctx context.Context, id, expectedVersion, courtID int64, windows []SlotWindow) error {
	return errors.New("not used")
}

func (m *MockRepository) TouchVersion(ctx context.Context, id, expectedVersion int64) error {
	return errors.New("not used")
}

func (m *MockRepository) Transaction(ctx context.Context, fn func(tx Repository) error) error {
	return fn(m)
}

func (m *MockRepository) WithTx(tx *gorm.DB) Repository {
	return m
}

type fakeCourts map[int64]*catalog.Court

func (f fakeCourts) GetCourt(ctx context.Context, id int64) (*catalog.Court, error) {
	c, ok := f[id]
	if !ok {
		return nil, apperror.Newf(apperror.ErrReferenceNotFound, "court %d not found", id)
	}
	return c, nil
}

type recordingPublisher struct {
	events []*notifications.Event
}

func (r *recordingPublisher) Publish(ctx context.Context, e *notifications.Event) error {
	r.events = append(r.events, e)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func TestCancelBooking(t *testing.T) {
	tests := []struct {
		name       string
		status     Status
		wantErr    error
		wantDetail string
	}{
		{"pending booking is cancelled", StatusPending, nil, ""},
		{"confirmed booking is cancelled", StatusConfirmed, nil, ""},
		{"paid booking is rejected", StatusPaid, apperror.ErrInvalidState, "booking already paid, cannot cancel"},
		{"cancelled booking is rejected", StatusCancelled, apperror.ErrInvalidState, "booking already cancelled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMockRepository(&CourtBooking{ID: 1, CourtID: 3, Status: tt.status, Version: 4})
			pub := &recordingPublisher{}
			svc := NewService(repo, fakeCourts{}, pub, time.UTC)

			booking, err := svc.CancelBooking(context.Background(), 1, "staff@courtly.dev")

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if !strings.Contains(err.Error(), tt.wantDetail) {
					t.Errorf("error %q should name the violated rule %q", err.Error(), tt.wantDetail)
				}
				if repo.statusUpdates != 0 {
					t.Error("rejected cancellation must not write")
				}
				if len(pub.events) != 0 {
					t.Error("rejected cancellation must not publish")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if booking.Status != StatusCancelled || booking.CancelledBy != "staff@courtly.dev" {
				t.Errorf("unexpected booking after cancel: %+v", booking)
			}
			if booking.Version != 5 {
				t.Errorf("cancel must bump version, got %d", booking.Version)
			}
			if len(pub.events) != 1 || pub.events[0].Type != notifications.EventBookingCancelled {
				t.Errorf("expected one booking.cancelled event, got %v", pub.events)
			}
		})
	}
}

func TestCancelBooking_NotFound(t *testing.T) {
	svc := NewService(NewMockRepository(), fakeCourts{}, nil, nil)
	_, err := svc.CancelBooking(context.Background(), 9, "x")
	if !errors.Is(err, apperror.ErrReferenceNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateBooking(t *testing.T) {
	courts := fakeCourts{3: {ID: 3, BaseHourlyPrice: 100000}}

	t.Run("creates pending booking with sorted slots", func(t *testing.T) {
		repo := NewMockRepository()
		svc := NewService(repo, courts, nil, time.UTC)

		booking, err := svc.CreateBooking(context.Background(), CreateBookingRequest{
			CourtID:    3,
			CustomerID: 8,
			Slots:      []SlotWindow{{at(10, 0), at(11, 0)}, {at(9, 0), at(10, 0)}},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if booking.Status != StatusPending || booking.Version != 1 {
			t.Errorf("unexpected booking state: %+v", booking)
		}
		if len(booking.Slots) != 2 || !booking.Slots[0].StartTime.Equal(at(9, 0)) {
			t.Errorf("slots should be stored in start order: %+v", booking.Slots)
		}
		if booking.Slots[0].CourtID != 3 {
			t.Errorf("slots must carry the court id")
		}
	})

	t.Run("unknown court", func(t *testing.T) {
		svc := NewService(NewMockRepository(), courts, nil, time.UTC)
		_, err := svc.CreateBooking(context.Background(), CreateBookingRequest{
			CourtID: 99, CustomerID: 8, Slots: []SlotWindow{{at(9, 0), at(10, 0)}},
		})
		if !errors.Is(err, apperror.ErrReferenceNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("invalid slots rejected before lookup", func(t *testing.T) {
		svc := NewService(NewMockRepository(), courts, nil, time.UTC)
		_, err := svc.CreateBooking(context.Background(), CreateBookingRequest{
			CourtID: 3, CustomerID: 8, Slots: []SlotWindow{{at(10, 0), at(9, 0)}},
		})
		if !errors.Is(err, apperror.ErrInvalidTimeRange) {
			t.Fatalf("expected invalid time range, got %v", err)
		}
	})
}
