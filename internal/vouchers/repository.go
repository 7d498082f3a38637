package vouchers

import (
	"context"
	"fmt"
	"sort"

	"courtly/internal/invoices"
	"courtly/internal/shared/apperror"

	"gorm.io/gorm"
)

type Repository interface {
	// ListVouchers returns the booking's active vouchers with their items.
	ListVouchers(ctx context.Context, bookingID int64) ([]ServiceBooking, error)
	ListItems(ctx context.Context, bookingID int64) ([]ServiceBookingItem, error)

	// ApplyServices writes a ServicesUpdate for the booking and returns the
	// ids assigned to session vouchers.
	ApplyServices(ctx context.Context, bookingID int64, update ServicesUpdate) (map[VoucherID]int64, error)

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

func (r *repository) ListVouchers(ctx context.Context, bookingID int64) ([]ServiceBooking, error) {
	var list []ServiceBooking
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Where("court_booking_id = ? AND status = ?", bookingID, StatusActive).
		Order("id ASC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list vouchers: %w", err)
	}
	return list, nil
}

func (r *repository) ListItems(ctx context.Context, bookingID int64) ([]ServiceBookingItem, error) {
	var items []ServiceBookingItem
	err := r.db.WithContext(ctx).
		Joins("JOIN service_bookings ON service_bookings.id = service_booking_items.service_booking_id").
		Where("service_bookings.court_booking_id = ? AND service_bookings.status = ?", bookingID, StatusActive).
		Order("service_booking_items.id ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list service items: %w", err)
	}
	return items, nil
}

// ApplyServices re-checks the paid-voucher lock against the invoices table
// before deleting or changing any stored item, so a payment recorded after
// the edit session loaded still protects its items.
func (r *repository) ApplyServices(ctx context.Context, bookingID int64, update ServicesUpdate) (map[VoucherID]int64, error) {
	created := map[VoucherID]int64{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owned, err := r.ownedItems(tx, bookingID)
		if err != nil {
			return err
		}
		paid, err := paidVouchers(tx, bookingID)
		if err != nil {
			return err
		}

		for _, voucherID := range update.RemovedVoucherIDs {
			if paid[voucherID] {
				return apperror.Newf(apperror.ErrVoucherLocked, "voucher %d has a paid invoice and cannot be removed", voucherID)
			}
			res := tx.Model(&ServiceBooking{}).
				Where("id = ? AND court_booking_id = ?", voucherID, bookingID).
				Update("status", StatusCancelled)
			if res.Error != nil {
				return fmt.Errorf("failed to cancel voucher: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return apperror.Newf(apperror.ErrReferenceNotFound, "voucher %d not found on booking %d", voucherID, bookingID)
			}
		}

		if len(update.RemovedItemIDs) > 0 {
			for _, id := range update.RemovedItemIDs {
				row, ok := owned[id]
				if !ok {
					return apperror.Newf(apperror.ErrReferenceNotFound, "service item %d not found on booking %d", id, bookingID)
				}
				if paid[row.ServiceBookingID] {
					return apperror.Newf(apperror.ErrVoucherLocked, "service item %d belongs to paid voucher %d", id, row.ServiceBookingID)
				}
			}
			if err := tx.Where("id IN ?", update.RemovedItemIDs).Delete(&ServiceBookingItem{}).Error; err != nil {
				return fmt.Errorf("failed to remove service items: %w", err)
			}
		}

		newByVoucher := map[VoucherID][]ServiceBookingItem{}
		for _, it := range update.Items {
			if it.IsPersisted() {
				if err := updateItem(tx, owned, paid, it); err != nil {
					return err
				}
				continue
			}
			if !it.Voucher.IsPending() {
				return apperror.Newf(apperror.ErrInvalidState, "new service item must belong to a new voucher")
			}
			if it.Quantity < 1 {
				return apperror.Newf(apperror.ErrInsufficientSelection, "quantity must be at least 1, got %d", it.Quantity)
			}
			newByVoucher[it.Voucher] = append(newByVoucher[it.Voucher], ServiceBookingItem{
				BranchServiceID: it.BranchServiceID,
				Quantity:        it.Quantity,
				StartTime:       it.StartTime,
				EndTime:         it.EndTime,
				TrainerIDs:      it.TrainerIDs,
			})
		}

		keys := make([]VoucherID, 0, len(newByVoucher))
		for k := range newByVoucher {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })
		for _, key := range keys {
			voucher := ServiceBooking{
				CourtBookingID: bookingID,
				Status:         StatusActive,
				Items:          newByVoucher[key],
			}
			if err := tx.Create(&voucher).Error; err != nil {
				return fmt.Errorf("failed to create voucher: %w", err)
			}
			created[key] = voucher.ID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *repository) ownedItems(tx *gorm.DB, bookingID int64) (map[int64]ServiceBookingItem, error) {
	var rows []ServiceBookingItem
	err := tx.
		Joins("JOIN service_bookings ON service_bookings.id = service_booking_items.service_booking_id").
		Where("service_bookings.court_booking_id = ?", bookingID).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load service items: %w", err)
	}
	out := make(map[int64]ServiceBookingItem, len(rows))
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

func paidVouchers(tx *gorm.DB, bookingID int64) (map[int64]bool, error) {
	var ids []int64
	err := tx.Model(&invoices.Invoice{}).
		Where("status = ?", invoices.StatusPaid).
		Where("service_booking_id IN (?)",
			tx.Model(&ServiceBooking{}).Select("id").Where("court_booking_id = ?", bookingID)).
		Pluck("service_booking_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load paid vouchers: %w", err)
	}
	out := make(map[int64]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func updateItem(tx *gorm.DB, owned map[int64]ServiceBookingItem, paid map[int64]bool, it Item) error {
	row, ok := owned[it.ID]
	if !ok {
		return apperror.Newf(apperror.ErrReferenceNotFound, "service item %d not found on this booking", it.ID)
	}
	if row.Quantity == it.Quantity && row.StartTime.Equal(it.StartTime) && row.EndTime.Equal(it.EndTime) {
		return nil
	}
	if paid[row.ServiceBookingID] {
		return apperror.Newf(apperror.ErrVoucherLocked, "service item %d belongs to paid voucher %d", it.ID, row.ServiceBookingID)
	}
	if it.Quantity < 1 {
		return apperror.Newf(apperror.ErrInsufficientSelection, "quantity must be at least 1, got %d", it.Quantity)
	}
	err := tx.Model(&ServiceBookingItem{}).Where("id = ?", it.ID).Updates(map[string]interface{}{
		"quantity":   it.Quantity,
		"start_time": it.StartTime,
		"end_time":   it.EndTime,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to update service item: %w", err)
	}
	return nil
}
