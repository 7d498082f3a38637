package invoices

import (
	"context"
	"errors"
	"fmt"

	"courtly/internal/shared/apperror"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	Create(ctx context.Context, invoice *Invoice) error
	GetByID(ctx context.Context, id int64) (*Invoice, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*Invoice, error)
	Save(ctx context.Context, invoice *Invoice) error

	// ListForBooking returns invoices linked to the booking directly or
	// through one of its vouchers.
	ListForBooking(ctx context.Context, bookingID int64) ([]Invoice, error)

	AppendRefund(ctx context.Context, entry *RefundEntry) error
	ListRefunds(ctx context.Context, invoiceID int64) ([]RefundEntry, error)

	Transaction(ctx context.Context, fn func(tx Repository) error) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Transaction(ctx context.Context, fn func(tx Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&repository{db: tx})
	})
}

func (r *repository) Create(ctx context.Context, invoice *Invoice) error {
	if err := r.db.WithContext(ctx).Create(invoice).Error; err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Invoice, error) {
	return r.get(r.db.WithContext(ctx), id)
}

func (r *repository) GetByIDForUpdate(ctx context.Context, id int64) (*Invoice, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *repository) get(db *gorm.DB, id int64) (*Invoice, error) {
	var invoice Invoice
	if err := db.Where("id = ?", id).First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Newf(apperror.ErrReferenceNotFound, "invoice %d not found", id)
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return &invoice, nil
}

func (r *repository) Save(ctx context.Context, invoice *Invoice) error {
	if err := r.db.WithContext(ctx).Save(invoice).Error; err != nil {
		return fmt.Errorf("failed to save invoice: %w", err)
	}
	return nil
}

func (r *repository) ListForBooking(ctx context.Context, bookingID int64) ([]Invoice, error) {
	var list []Invoice
	err := r.db.WithContext(ctx).
		Where("court_booking_id = ?", bookingID).
		Or("service_booking_id IN (?)",
			r.db.Table("service_bookings").Select("id").Where("court_booking_id = ?", bookingID)).
		Order("created_at ASC, id ASC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices for booking: %w", err)
	}
	return list, nil
}

func (r *repository) AppendRefund(ctx context.Context, entry *RefundEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to record refund: %w", err)
	}
	return nil
}

func (r *repository) ListRefunds(ctx context.Context, invoiceID int64) ([]RefundEntry, error) {
	var entries []RefundEntry
	err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list refunds: %w", err)
	}
	return entries, nil
}
