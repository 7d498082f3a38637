package invoices

import (
	"time"

	"github.com/google/uuid"
)

// Status is the invoice lifecycle state.
type Status string

const (
	StatusUnpaid            Status = "UNPAID"
	StatusPending           Status = "PENDING"
	StatusPaid              Status = "PAID"
	StatusCancelled         Status = "CANCELLED"
	StatusRefunded          Status = "REFUNDED"
	StatusPartiallyRefunded Status = "PARTIALLY_REFUNDED"
)

// IsValid checks if the status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusUnpaid, StatusPending, StatusPaid, StatusCancelled, StatusRefunded, StatusPartiallyRefunded:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusRefunded
}

// IsAwaitingPayment is true for UNPAID and PENDING.
func (s Status) IsAwaitingPayment() bool {
	return s == StatusUnpaid || s == StatusPending
}

// CountsAsCollected reports whether the invoice's full total counts as money
// already collected. Partially refunded invoices still count in full; the
// refunded part is tracked in RefundAmount.
func (s Status) CountsAsCollected() bool {
	return s == StatusPaid || s == StatusPartiallyRefunded
}

// CanBeRefunded is true for PAID and PARTIALLY_REFUNDED.
func (s Status) CanBeRefunded() bool {
	return s == StatusPaid || s == StatusPartiallyRefunded
}

const (
	PaymentMethodCounter      = "counter"
	PaymentMethodOnline       = "online"
	PaymentMethodBankTransfer = "bank_transfer"
)

// Invoice is a charge against a court booking or a single voucher.
type Invoice struct {
	ID               int64      `gorm:"primaryKey" json:"id"`
	TotalAmount      int64      `gorm:"not null;check:total_amount >= 0" json:"total_amount"`
	PaymentMethod    string     `gorm:"type:varchar(30);not null" json:"payment_method"`
	Status           Status     `gorm:"type:varchar(30);not null;default:'UNPAID';index" json:"status"`
	CourtBookingID   *int64     `gorm:"index" json:"court_booking_id,omitempty"`
	ServiceBookingID *int64     `gorm:"index" json:"service_booking_id,omitempty"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	RefundAmount     int64      `gorm:"not null;default:0" json:"refund_amount"`
	RefundReason     string     `gorm:"type:text" json:"refund_reason,omitempty"`
	RefundedBy       string     `gorm:"type:varchar(255)" json:"refunded_by,omitempty"`
	RefundedAt       *time.Time `json:"refunded_at,omitempty"`
	CancelReason     string     `gorm:"type:text" json:"cancel_reason,omitempty"`
	CancelledBy      string     `gorm:"type:varchar(255)" json:"cancelled_by,omitempty"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty"`
	Notes            string     `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// RefundEntry is one row of the append-only refund ledger.
type RefundEntry struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceID int64     `gorm:"index;not null" json:"invoice_id"`
	Amount    int64     `gorm:"not null" json:"amount"`
	Reason    string    `gorm:"type:text;not null" json:"reason"`
	Actor     string    `gorm:"type:varchar(255);not null" json:"actor"`
	CreatedAt time.Time `json:"created_at"`
}

func (Invoice) TableName() string {
	return "invoices"
}

func (RefundEntry) TableName() string {
	return "refund_entries"
}

// RemainingRefundable is how much can still be refunded.
func (i *Invoice) RemainingRefundable() int64 {
	if !i.Status.CanBeRefunded() {
		return 0
	}
	return i.TotalAmount - i.RefundAmount
}

// AdjustPatch is an administrative override. Nil fields are left unchanged.
type AdjustPatch struct {
	Status        *Status `json:"status,omitempty"`
	PaymentMethod *string `json:"payment_method,omitempty" binding:"omitempty,oneof=counter online bank_transfer"`
	Notes         *string `json:"notes,omitempty" binding:"omitempty,max=2000"`
}

// IsEmpty reports whether the patch changes nothing.
func (p AdjustPatch) IsEmpty() bool {
	return p.Status == nil && p.PaymentMethod == nil && p.Notes == nil
}
