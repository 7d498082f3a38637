package invoices

import (
	"strings"
	"time"

	"courtly/internal/shared/apperror"

	"github.com/google/uuid"
)

// The functions below apply one state-machine step to an invoice in memory.
// Each validates every guard before touching the invoice, so a rejected call
// leaves it exactly as it was.

// MarkPaid moves an UNPAID or PENDING invoice to PAID.
func MarkPaid(inv *Invoice, now time.Time) error {
	if !inv.Status.IsAwaitingPayment() {
		return apperror.Newf(apperror.ErrInvalidState,
			"invoice %d is %s, only UNPAID or PENDING invoices can be marked as paid", inv.ID, inv.Status)
	}
	inv.Status = StatusPaid
	inv.PaidAt = &now
	return nil
}

// CancelPaid cancels a PAID invoice and records who did it and why.
func CancelPaid(inv *Invoice, reason, actor string, now time.Time) error {
	switch {
	case inv.Status == StatusCancelled:
		return apperror.Newf(apperror.ErrInvalidState, "invoice %d already cancelled", inv.ID)
	case inv.Status != StatusPaid:
		return apperror.Newf(apperror.ErrInvalidState,
			"invoice %d is %s, only PAID invoices can be cancelled", inv.ID, inv.Status)
	}
	inv.Status = StatusCancelled
	inv.CancelReason = reason
	inv.CancelledBy = actor
	inv.CancelledAt = &now
	return nil
}

// ApplyRefund refunds amount against a PAID or PARTIALLY_REFUNDED invoice.
// The cumulative refunded amount never exceeds the total; reaching it exactly
// makes the invoice REFUNDED.
func ApplyRefund(inv *Invoice, amount int64, reason, actor string, now time.Time) (*RefundEntry, error) {
	if amount <= 0 {
		return nil, apperror.Newf(apperror.ErrInvalidState, "refund amount must be positive, got %d", amount)
	}
	if !inv.Status.CanBeRefunded() {
		return nil, apperror.Newf(apperror.ErrInvalidState,
			"invoice %d is %s, only PAID or PARTIALLY_REFUNDED invoices can be refunded", inv.ID, inv.Status)
	}
	if inv.RefundAmount+amount > inv.TotalAmount {
		return nil, apperror.Newf(apperror.ErrRefundExceedsTotal,
			"refund of %d exceeds remaining %d (already refunded %d of total %d)",
			amount, inv.TotalAmount-inv.RefundAmount, inv.RefundAmount, inv.TotalAmount)
	}

	inv.RefundAmount += amount
	inv.RefundReason = reason
	inv.RefundedBy = actor
	inv.RefundedAt = &now
	if inv.RefundAmount == inv.TotalAmount {
		inv.Status = StatusRefunded
	} else {
		inv.Status = StatusPartiallyRefunded
	}

	return &RefundEntry{
		ID:        uuid.New(),
		InvoiceID: inv.ID,
		Amount:    amount,
		Reason:    reason,
		Actor:     actor,
		CreatedAt: now,
	}, nil
}

// ApplyAdjustment applies an administrative patch to a non-terminal invoice.
// A status in the patch may only move UNPAID and PENDING between each other or
// on to PAID; cancellations and refunds need their own operations.
func ApplyAdjustment(inv *Invoice, patch AdjustPatch, now time.Time) error {
	if inv.Status.IsTerminal() {
		return apperror.Newf(apperror.ErrInvalidState, "invoice %d is %s and can no longer be adjusted", inv.ID, inv.Status)
	}

	next := inv.Status
	if patch.Status != nil && *patch.Status != inv.Status {
		if !canAdjustStatus(inv.Status, *patch.Status) {
			return apperror.Newf(apperror.ErrInvalidState,
				"invoice %d cannot be adjusted from %s to %s", inv.ID, inv.Status, *patch.Status)
		}
		next = *patch.Status
	}
	if patch.PaymentMethod != nil && strings.TrimSpace(*patch.PaymentMethod) == "" {
		return apperror.Newf(apperror.ErrInvalidState, "payment method cannot be blank")
	}

	if next == StatusPaid && inv.Status != StatusPaid {
		inv.PaidAt = &now
	}
	inv.Status = next
	if patch.PaymentMethod != nil {
		inv.PaymentMethod = *patch.PaymentMethod
	}
	if patch.Notes != nil {
		inv.Notes = *patch.Notes
	}
	return nil
}

func canAdjustStatus(from, to Status) bool {
	if !from.IsAwaitingPayment() {
		return false
	}
	return to == StatusUnpaid || to == StatusPending || to == StatusPaid
}
