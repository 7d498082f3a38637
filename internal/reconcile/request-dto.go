package reconcile

import (
	"time"

	"courtly/internal/bookings"
	"courtly/internal/vouchers"
)

// Service edit operations accepted in EditRequest.Actions.
const (
	OpAddItem            = "add_item"
	OpCommitVoucher      = "commit_voucher"
	OpRemovePendingItem  = "remove_pending_item"
	OpSetPendingQuantity = "set_pending_quantity"
	OpSetPendingWindow   = "set_pending_window"
	OpSetPendingTrainers = "set_pending_trainers"
	OpRemoveItem         = "remove_item"
	OpRemoveVoucher      = "remove_voucher"
	OpSetQuantity        = "set_quantity"
	OpSetItemWindow      = "set_item_window"
)

// EditRequest describes one edit of a booking. Version is the booking version
// the client loaded; a save fails if the booking has moved on since.
type EditRequest struct {
	Version int64                 `json:"version" binding:"required,min=1"`
	CourtID *int64                `json:"court_id,omitempty"`
	Slots   []bookings.SlotWindow `json:"slots,omitempty" binding:"omitempty,dive"`
	Actions []ServiceAction       `json:"actions,omitempty" binding:"omitempty,dive"`
}

// ServiceAction is one step applied to the voucher working set, in order.
// Index refers to ActiveItems for item operations and to the draft for
// pending operations.
type ServiceAction struct {
	Op              string              `json:"op" binding:"required,oneof=add_item commit_voucher remove_pending_item set_pending_quantity set_pending_window set_pending_trainers remove_item remove_voucher set_quantity set_item_window"`
	BranchServiceID int64               `json:"branch_service_id,omitempty"`
	Index           int                 `json:"index,omitempty"`
	VoucherID       *vouchers.VoucherID `json:"voucher_id,omitempty" swaggertype:"string"`
	Quantity        int                 `json:"quantity,omitempty"`
	StartTime       *time.Time          `json:"start_time,omitempty"`
	EndTime         *time.Time          `json:"end_time,omitempty"`
	TrainerIDs      []int64             `json:"trainer_ids,omitempty"`
}

// DepositQuery selects the payment method a deposit decision is made for.
type DepositQuery struct {
	PaymentMethod string `form:"payment_method" binding:"required,oneof=counter online bank_transfer"`
}
