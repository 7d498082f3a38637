package reconcile

import (
	"context"
	"fmt"
	"time"

	"courtly/internal/bookings"
	"courtly/internal/catalog"
	"courtly/internal/deposit"
	"courtly/internal/notifications"
	"courtly/internal/pricing"
	"courtly/internal/shared/apperror"
	"courtly/internal/vouchers"
	"courtly/pkg/logger"
)

// Service loads bookings into edit sessions and persists their results.
type Service interface {
	Quote(ctx context.Context, bookingID int64) (*Quote, error)
	Preview(ctx context.Context, bookingID int64, req EditRequest) (*EditResult, error)
	Save(ctx context.Context, bookingID int64, req EditRequest, actor string) (*EditResult, error)
	Services(ctx context.Context, bookingID int64) (*ServicesView, error)
	Deposit(ctx context.Context, bookingID int64, paymentMethod string, now time.Time) (*deposit.Decision, error)
	WatchDeposit(ctx context.Context, bookingID int64, paymentMethod string) (<-chan deposit.Decision, error)
}

// Deps are the collaborators of the reconcile service.
type Deps struct {
	Bookings   BookingReader
	Vouchers   VoucherReader
	Invoices   InvoiceReader
	Catalog    catalog.Repository
	UnitOfWork UnitOfWork
	Policy     *deposit.Policy
	Publisher  notifications.Publisher
	Location   *time.Location
}

type service struct {
	deps    Deps
	watcher *deposit.Watcher
	log     *logger.Logger
}

func NewService(deps Deps) Service {
	if deps.Publisher == nil {
		deps.Publisher = notifications.NoopPublisher{}
	}
	if deps.Policy == nil {
		deps.Policy = deposit.NewPolicy(deposit.DefaultConfig())
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	return &service{
		deps:    deps,
		watcher: deposit.NewWatcher(deps.Policy),
		log:     logger.GetDefault(),
	}
}

func (s *service) Quote(ctx context.Context, bookingID int64) (*Quote, error) {
	session, err := s.session(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	b := session.Booking()
	return &Quote{
		BookingID:   b.ID,
		Version:     b.Version,
		Status:      b.Status,
		Calculation: session.Original(),
	}, nil
}

func (s *service) Preview(ctx context.Context, bookingID int64, req EditRequest) (*EditResult, error) {
	session, current, err := s.open(ctx, bookingID, req)
	if err != nil {
		return nil, err
	}
	return newEditResult(session, current), nil
}

// Save applies the edit and writes the changed parts in one transaction.
// Nothing is written when the edit produces no instructions.
func (s *service) Save(ctx context.Context, bookingID int64, req EditRequest, actor string) (*EditResult, error) {
	session, current, err := s.open(ctx, bookingID, req)
	if err != nil {
		return nil, err
	}
	result := newEditResult(session, current)
	if result.Instructions.IsEmpty() {
		return result, nil
	}

	instructions := result.Instructions
	var created map[vouchers.VoucherID]int64
	err = s.deps.UnitOfWork.Do(ctx, func(w Writers) error {
		if ct := instructions.CourtTime; ct != nil {
			if err := w.Bookings.UpdateCourtTime(ctx, bookingID, req.Version, ct.CourtID, ct.Slots); err != nil {
				return err
			}
		} else if err := w.Bookings.TouchVersion(ctx, bookingID, req.Version); err != nil {
			return err
		}

		if instructions.Services != nil {
			ids, err := w.Services.ApplyServices(ctx, bookingID, *instructions.Services)
			if err != nil {
				return err
			}
			created = ids
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save edit of booking %d: %w", bookingID, err)
	}

	result.Saved = true
	result.Version = req.Version + 1
	if len(created) > 0 {
		result.CreatedVouchers = make(map[string]int64, len(created))
		for pending, id := range created {
			result.CreatedVouchers[pending.String()] = id
		}
	}

	s.log.LogBookingEdited(ctx, bookingID, result.CourtTimeChanged, result.ServicesChanged || result.ItemsEdited, current.Difference, actor)
	notifications.Emit(ctx, s.deps.Publisher, notifications.NewEvent(notifications.EventBookingEdited, map[string]interface{}{
		"court_time_changed": result.CourtTimeChanged,
		"services_changed":   result.ServicesChanged,
		"items_edited":       result.ItemsEdited,
		"total_amount":       current.TotalAmount,
		"already_paid":       current.AlreadyPaid,
		"difference":         current.Difference,
		"version":            result.Version,
	}).ForBooking(bookingID).By(actor))

	return result, nil
}

func (s *service) Services(ctx context.Context, bookingID int64) (*ServicesView, error) {
	session, err := s.session(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return &ServicesView{
		BookingID: bookingID,
		Groups:    session.Vouchers().Groups(),
	}, nil
}

func (s *service) Deposit(ctx context.Context, bookingID int64, paymentMethod string, now time.Time) (*deposit.Decision, error) {
	watch, err := s.depositWatch(ctx, bookingID, paymentMethod)
	if err != nil {
		return nil, err
	}
	d := s.deps.Policy.Evaluate(now, watch.SlotStart, paymentMethod, watch.CourtFee)
	return &d, nil
}

// WatchDeposit streams deposit decisions until ctx ends or the slot starts.
func (s *service) WatchDeposit(ctx context.Context, bookingID int64, paymentMethod string) (<-chan deposit.Decision, error) {
	watch, err := s.depositWatch(ctx, bookingID, paymentMethod)
	if err != nil {
		return nil, err
	}
	return s.watcher.Run(ctx, watch), nil
}

func (s *service) depositWatch(ctx context.Context, bookingID int64, paymentMethod string) (deposit.Watch, error) {
	session, err := s.session(ctx, bookingID)
	if err != nil {
		return deposit.Watch{}, err
	}
	b := session.Booking()
	if len(b.Slots) == 0 {
		return deposit.Watch{}, apperror.Newf(apperror.ErrInsufficientSelection, "booking %d has no time slots", bookingID)
	}
	return deposit.Watch{
		BookingID:     bookingID,
		SlotStart:     b.FirstStart(),
		PaymentMethod: paymentMethod,
		CourtFee:      session.Original().CourtFee,
	}, nil
}

// open loads the booking, checks the client's version and replays req.
func (s *service) open(ctx context.Context, bookingID int64, req EditRequest) (*Session, pricing.Calculation, error) {
	session, err := s.session(ctx, bookingID)
	if err != nil {
		return nil, pricing.Calculation{}, err
	}
	if session.Booking().Status == bookings.StatusCancelled {
		return nil, pricing.Calculation{}, apperror.Newf(apperror.ErrInvalidState, "booking %d is cancelled and cannot be edited", bookingID)
	}
	if v := session.Booking().Version; v != req.Version {
		return nil, pricing.Calculation{}, apperror.Newf(apperror.ErrConcurrentModification,
			"booking %d is at version %d, edit was made against version %d", bookingID, v, req.Version)
	}

	var court *catalog.Court
	if req.CourtID != nil && *req.CourtID != session.Booking().CourtID {
		court, err = s.deps.Catalog.GetCourt(ctx, *req.CourtID)
		if err != nil {
			return nil, pricing.Calculation{}, err
		}
		if court.BranchID != branchOf(session.Court()) {
			used := branchServiceIDs(session.Vouchers().ActiveItems())
			ref, err := catalog.LoadReference(ctx, s.deps.Catalog, court, used)
			if err != nil {
				return nil, pricing.Calculation{}, err
			}
			session.SetReference(ref)
		}
	}
	if err := apply(session, court, req); err != nil {
		return nil, pricing.Calculation{}, err
	}

	current, err := session.Current()
	if err != nil {
		return nil, pricing.Calculation{}, err
	}
	return session, current, nil
}

func (s *service) session(ctx context.Context, bookingID int64) (*Session, error) {
	snap, err := s.snapshot(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return NewSession(snap)
}

func (s *service) snapshot(ctx context.Context, bookingID int64) (Snapshot, error) {
	booking, err := s.deps.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return Snapshot{}, err
	}
	court, err := s.deps.Catalog.GetCourt(ctx, booking.CourtID)
	if err != nil {
		return Snapshot{}, err
	}
	list, err := s.deps.Vouchers.ListVouchers(ctx, bookingID)
	if err != nil {
		return Snapshot{}, err
	}
	invs, err := s.deps.Invoices.ListForBooking(ctx, bookingID)
	if err != nil {
		return Snapshot{}, err
	}
	var used []int64
	for _, v := range list {
		for _, it := range v.Items {
			used = append(used, it.BranchServiceID)
		}
	}
	ref, err := catalog.LoadReference(ctx, s.deps.Catalog, court, used)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		Booking:        booking,
		Court:          court,
		Vouchers:       list,
		Invoices:       invs,
		BranchServices: ref.BranchServices,
		Services:       ref.Services,
		Location:       s.deps.Location,
	}, nil
}
