package bookings

import (
	"context"
	"fmt"
	"time"

	"courtly/internal/catalog"
	"courtly/internal/notifications"
	"courtly/internal/shared/apperror"
	"courtly/pkg/logger"
)

// CourtFinder resolves the court a booking is placed on.
type CourtFinder interface {
	GetCourt(ctx context.Context, id int64) (*catalog.Court, error)
}

// Service interface defines the contract for booking business logic
type Service interface {
	CreateBooking(ctx context.Context, req CreateBookingRequest) (*CourtBooking, error)
	GetBooking(ctx context.Context, bookingID int64) (*CourtBooking, error)
	CancelBooking(ctx context.Context, bookingID int64, actor string) (*CourtBooking, error)
}

type service struct {
	repo      Repository
	courts    CourtFinder
	publisher notifications.Publisher
	location  *time.Location
	log       *logger.Logger
	now       func() time.Time
}

// NewService creates a booking service. loc is the timezone slot dates are
// compared in.
func NewService(repo Repository, courts CourtFinder, publisher notifications.Publisher, loc *time.Location) Service {
	if publisher == nil {
		publisher = notifications.NoopPublisher{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &service{
		repo:      repo,
		courts:    courts,
		publisher: publisher,
		location:  loc,
		log:       logger.GetDefault(),
		now:       time.Now,
	}
}

func (s *service) CreateBooking(ctx context.Context, req CreateBookingRequest) (*CourtBooking, error) {
	if err := ValidateSlots(req.Slots, s.location); err != nil {
		return nil, err
	}

	court, err := s.courts.GetCourt(ctx, req.CourtID)
	if err != nil {
		return nil, err
	}

	booking := &CourtBooking{
		CourtID:    court.ID,
		CustomerID: req.CustomerID,
		Status:     StatusPending,
		Version:    1,
		Slots:      NewSlots(court.ID, req.Slots),
	}
	if err := s.repo.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	s.log.LogBookingCreated(ctx, booking.ID, booking.CourtID, booking.CustomerID)
	notifications.Emit(ctx, s.publisher, notifications.NewEvent(notifications.EventBookingCreated, map[string]interface{}{
		"court_id":    booking.CourtID,
		"customer_id": booking.CustomerID,
		"slots":       len(booking.Slots),
	}).ForBooking(booking.ID))

	return booking, nil
}

func (s *service) GetBooking(ctx context.Context, bookingID int64) (*CourtBooking, error) {
	return s.repo.GetByID(ctx, bookingID)
}

// CancelBooking marks the booking cancelled. Paid and already-cancelled
// bookings are rejected. Invoices are left untouched; refunds go through the
// invoice ledger.
func (s *service) CancelBooking(ctx context.Context, bookingID int64, actor string) (*CourtBooking, error) {
	var cancelled *CourtBooking
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		booking, err := tx.GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := ensureCancellable(booking); err != nil {
			return err
		}

		now := s.now()
		if err := tx.UpdateStatus(ctx, bookingID, StatusCancelled, &now, actor); err != nil {
			return err
		}
		booking.Status = StatusCancelled
		booking.CancelledAt = &now
		booking.CancelledBy = actor
		booking.Version++
		cancelled = booking
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.LogBookingCancelled(ctx, bookingID, actor)
	notifications.Emit(ctx, s.publisher, notifications.NewEvent(notifications.EventBookingCancelled, nil).
		ForBooking(bookingID).
		By(actor))

	return cancelled, nil
}

func ensureCancellable(booking *CourtBooking) error {
	switch booking.Status {
	case StatusPaid:
		return apperror.Newf(apperror.ErrInvalidState, "booking already paid, cannot cancel")
	case StatusCancelled:
		return apperror.Newf(apperror.ErrInvalidState, "booking already cancelled")
	}
	if !booking.Status.CanBeCancelled() {
		return apperror.Newf(apperror.ErrInvalidState, "booking in status %s cannot be cancelled", booking.Status)
	}
	return nil
}
