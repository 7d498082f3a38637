package reconcile

import (
	"context"

	"courtly/internal/bookings"
	"courtly/internal/invoices"
	"courtly/internal/vouchers"

	"gorm.io/gorm"
)

type BookingReader interface {
	GetByID(ctx context.Context, id int64) (*bookings.CourtBooking, error)
}

type VoucherReader interface {
	ListVouchers(ctx context.Context, bookingID int64) ([]vouchers.ServiceBooking, error)
}

type InvoiceReader interface {
	ListForBooking(ctx context.Context, bookingID int64) ([]invoices.Invoice, error)
}

// CourtTimeWriter applies court-time changes under the version guard.
type CourtTimeWriter interface {
	UpdateCourtTime(ctx context.Context, id, expectedVersion, courtID int64, windows []bookings.SlotWindow) error
	TouchVersion(ctx context.Context, id, expectedVersion int64) error
}

type ServicesWriter interface {
	ApplyServices(ctx context.Context, bookingID int64, update vouchers.ServicesUpdate) (map[vouchers.VoucherID]int64, error)
}

// Writers are the stores a save writes through, all bound to one transaction.
type Writers struct {
	Bookings CourtTimeWriter
	Services ServicesWriter
}

// UnitOfWork runs fn in one transaction; any error rolls back every write.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(w Writers) error) error
}

type gormUnitOfWork struct {
	db       *gorm.DB
	bookings bookings.Repository
	vouchers vouchers.Repository
}

func NewUnitOfWork(db *gorm.DB, bookingRepo bookings.Repository, voucherRepo vouchers.Repository) UnitOfWork {
	return &gormUnitOfWork{db: db, bookings: bookingRepo, vouchers: voucherRepo}
}

func (u *gormUnitOfWork) Do(ctx context.Context, fn func(w Writers) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(Writers{
			Bookings: u.bookings.WithTx(tx),
			Services: u.vouchers.WithTx(tx),
		})
	})
}
