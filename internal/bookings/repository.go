package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"courtly/internal/shared/apperror"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	// Core booking operations
	Create(ctx context.Context, booking *CourtBooking) error
	GetByID(ctx context.Context, id int64) (*CourtBooking, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*CourtBooking, error)
	UpdateStatus(ctx context.Context, id int64, status Status, cancelledAt *time.Time, actor string) error

	// Edit operations, guarded by the optimistic version counter
	UpdateCourtTime(ctx context.Context, id, expectedVersion, courtID int64, windows []SlotWindow) error
	TouchVersion(ctx context.Context, id, expectedVersion int64) error

	// Transaction runs fn against a repository bound to one database transaction.
	Transaction(ctx context.Context, fn func(tx Repository) error) error
	WithTx(tx *gorm.DB) Repository
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) Transaction(ctx context.Context, fn func(tx Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&repository{db: tx})
	})
}

// Create inserts the booking and its slots after locking any slot on the same
// court that would overlap one of the new windows.
func (r *repository) Create(ctx context.Context, booking *CourtBooking) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, slot := range booking.Slots {
			if err := checkOverlap(tx, booking.CourtID, 0, slot.StartTime, slot.EndTime); err != nil {
				return err
			}
		}
		if booking.Version == 0 {
			booking.Version = 1
		}
		if err := tx.Create(booking).Error; err != nil {
			return fmt.Errorf("failed to create booking: %w", err)
		}
		return nil
	})
}

func (r *repository) GetByID(ctx context.Context, id int64) (*CourtBooking, error) {
	return r.get(r.db.WithContext(ctx), id)
}

func (r *repository) GetByIDForUpdate(ctx context.Context, id int64) (*CourtBooking, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{
		Strength: "UPDATE",
		Table:    clause.Table{Name: CourtBooking{}.TableName()},
	}), id)
}

func (r *repository) get(db *gorm.DB, id int64) (*CourtBooking, error) {
	var booking CourtBooking
	err := db.
		Preload("Slots", func(db *gorm.DB) *gorm.DB {
			return db.Order("start_time ASC")
		}).
		Where("id = ?", id).
		First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Newf(apperror.ErrReferenceNotFound, "booking %d not found", id)
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &booking, nil
}

// UpdateStatus also bumps the version so an edit session opened earlier
// cannot overwrite a cancellation.
func (r *repository) UpdateStatus(ctx context.Context, id int64, status Status, cancelledAt *time.Time, actor string) error {
	updates := map[string]interface{}{
		"status":     status,
		"version":    gorm.Expr("version + 1"),
		"updated_at": time.Now(),
	}
	if cancelledAt != nil {
		updates["cancelled_at"] = *cancelledAt
		updates["cancelled_by"] = actor
	}

	result := r.db.WithContext(ctx).Model(&CourtBooking{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update booking status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.Newf(apperror.ErrReferenceNotFound, "booking %d not found", id)
	}
	return nil
}

// UpdateCourtTime replaces the booking's court and slot set in one transaction.
// It fails with a concurrent-modification error when the stored version is not
// expectedVersion.
func (r *repository) UpdateCourtTime(ctx context.Context, id, expectedVersion, courtID int64, windows []SlotWindow) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := r.WithTx(tx).GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if booking.Version != expectedVersion {
			return apperror.Newf(apperror.ErrConcurrentModification,
				"booking %d changed since it was loaded (version %d, expected %d)", id, booking.Version, expectedVersion)
		}
		if !booking.Status.IsActive() {
			return apperror.Newf(apperror.ErrInvalidState, "booking %d is cancelled, cannot change court time", id)
		}

		for _, w := range windows {
			if err := checkOverlap(tx, courtID, id, w.StartTime, w.EndTime); err != nil {
				return err
			}
		}

		if err := tx.Where("booking_id = ?", id).Delete(&BookingSlot{}).Error; err != nil {
			return fmt.Errorf("failed to remove old slots: %w", err)
		}
		slots := NewSlots(courtID, windows)
		for i := range slots {
			slots[i].BookingID = id
		}
		if len(slots) > 0 {
			if err := tx.Create(&slots).Error; err != nil {
				return fmt.Errorf("failed to create slots: %w", err)
			}
		}

		err = tx.Model(&CourtBooking{}).Where("id = ?", id).Updates(map[string]interface{}{
			"court_id":   courtID,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		}).Error
		if err != nil {
			return fmt.Errorf("failed to update booking court: %w", err)
		}
		return nil
	})
}

// TouchVersion bumps the version without touching slots; used when an edit
// only changes services.
func (r *repository) TouchVersion(ctx context.Context, id, expectedVersion int64) error {
	result := r.db.WithContext(ctx).Model(&CourtBooking{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]interface{}{
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to bump booking version: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return apperror.Newf(apperror.ErrConcurrentModification, "booking %d changed since it was loaded", id)
	}
	return nil
}

// checkOverlap locks and rejects any active slot on courtID that intersects
// [start, end), ignoring slots owned by excludeBookingID.
func checkOverlap(tx *gorm.DB, courtID, excludeBookingID int64, start, end time.Time) error {
	var existing BookingSlot
	err := tx.Model(&BookingSlot{}).
		Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: BookingSlot{}.TableName()}}).
		Joins("JOIN court_bookings ON court_bookings.id = booking_slots.booking_id").
		Where("booking_slots.court_id = ? AND court_bookings.status <> ?", courtID, StatusCancelled).
		Where("booking_slots.booking_id <> ?", excludeBookingID).
		Where("booking_slots.start_time < ? AND booking_slots.end_time > ?", end, start).
		Take(&existing).Error

	if err == nil {
		return apperror.Newf(apperror.ErrInvalidTimeRange,
			"slot %s-%s overlaps booking %d on court %d",
			start.Format("15:04"), end.Format("15:04"), existing.BookingID, courtID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check slot overlap: %w", err)
	}
	return nil
}
