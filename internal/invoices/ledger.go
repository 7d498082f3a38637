package invoices

import (
	"context"
	"fmt"
	"time"

	"courtly/internal/notifications"
	"courtly/internal/shared/apperror"
	"courtly/pkg/logger"
)

// Ledger owns invoice status transitions. Every transition locks the invoice
// row for the duration of its transaction.
type Ledger interface {
	Create(ctx context.Context, req CreateInvoiceRequest) (*Invoice, error)
	Get(ctx context.Context, id int64) (*Invoice, error)
	ListForBooking(ctx context.Context, bookingID int64) ([]Invoice, error)
	ListRefunds(ctx context.Context, id int64) ([]RefundEntry, error)

	MarkAsPaid(ctx context.Context, id int64, actor string) (*Invoice, error)
	Cancel(ctx context.Context, id int64, reason, actor string) (*Invoice, error)
	Refund(ctx context.Context, id int64, amount int64, reason, actor string) (*Invoice, error)
	Adjust(ctx context.Context, id int64, patch AdjustPatch, actor string) (*Invoice, error)
}

type ledger struct {
	repo      Repository
	publisher notifications.Publisher
	log       *logger.Logger
	now       func() time.Time
}

func NewLedger(repo Repository, publisher notifications.Publisher) Ledger {
	if publisher == nil {
		publisher = notifications.NoopPublisher{}
	}
	return &ledger{
		repo:      repo,
		publisher: publisher,
		log:       logger.GetDefault(),
		now:       time.Now,
	}
}

func (l *ledger) Create(ctx context.Context, req CreateInvoiceRequest) (*Invoice, error) {
	if req.CourtBookingID == nil && req.ServiceBookingID == nil {
		return nil, apperror.Newf(apperror.ErrInsufficientSelection, "invoice must reference a court booking or a service booking")
	}
	if req.TotalAmount < 0 {
		return nil, apperror.Newf(apperror.ErrInvalidState, "invoice total cannot be negative")
	}

	invoice := &Invoice{
		TotalAmount:      req.TotalAmount,
		PaymentMethod:    req.PaymentMethod,
		Status:           StatusUnpaid,
		CourtBookingID:   req.CourtBookingID,
		ServiceBookingID: req.ServiceBookingID,
		Notes:            req.Notes,
	}
	if req.Status != "" {
		if !req.Status.IsAwaitingPayment() && req.Status != StatusPaid {
			return nil, apperror.Newf(apperror.ErrInvalidState, "new invoices start as UNPAID, PENDING or PAID, not %s", req.Status)
		}
		invoice.Status = req.Status
	}
	if invoice.Status == StatusPaid {
		now := l.now()
		invoice.PaidAt = &now
	}

	if err := l.repo.Create(ctx, invoice); err != nil {
		return nil, err
	}

	l.publish(ctx, notifications.EventInvoiceCreated, invoice, "", map[string]interface{}{
		"total_amount": invoice.TotalAmount,
		"status":       invoice.Status,
	})
	return invoice, nil
}

func (l *ledger) Get(ctx context.Context, id int64) (*Invoice, error) {
	return l.repo.GetByID(ctx, id)
}

func (l *ledger) ListForBooking(ctx context.Context, bookingID int64) ([]Invoice, error) {
	return l.repo.ListForBooking(ctx, bookingID)
}

func (l *ledger) ListRefunds(ctx context.Context, id int64) ([]RefundEntry, error) {
	if _, err := l.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return l.repo.ListRefunds(ctx, id)
}

func (l *ledger) MarkAsPaid(ctx context.Context, id int64, actor string) (*Invoice, error) {
	invoice, err := l.transition(ctx, id, actor, func(tx Repository, inv *Invoice) error {
		return MarkPaid(inv, l.now())
	})
	if err != nil {
		return nil, err
	}
	l.publish(ctx, notifications.EventInvoicePaid, invoice, actor, map[string]interface{}{
		"total_amount": invoice.TotalAmount,
	})
	return invoice, nil
}

func (l *ledger) Cancel(ctx context.Context, id int64, reason, actor string) (*Invoice, error) {
	invoice, err := l.transition(ctx, id, actor, func(tx Repository, inv *Invoice) error {
		return CancelPaid(inv, reason, actor, l.now())
	})
	if err != nil {
		return nil, err
	}
	l.publish(ctx, notifications.EventInvoiceCancelled, invoice, actor, map[string]interface{}{
		"reason": reason,
	})
	return invoice, nil
}

func (l *ledger) Refund(ctx context.Context, id int64, amount int64, reason, actor string) (*Invoice, error) {
	invoice, err := l.transition(ctx, id, actor, func(tx Repository, inv *Invoice) error {
		entry, err := ApplyRefund(inv, amount, reason, actor, l.now())
		if err != nil {
			return err
		}
		return tx.AppendRefund(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	l.log.LogRefundIssued(ctx, invoice.ID, amount, invoice.RefundAmount, actor)
	l.publish(ctx, notifications.EventInvoiceRefunded, invoice, actor, map[string]interface{}{
		"amount":         amount,
		"refunded_total": invoice.RefundAmount,
		"reason":         reason,
	})
	return invoice, nil
}

func (l *ledger) Adjust(ctx context.Context, id int64, patch AdjustPatch, actor string) (*Invoice, error) {
	if patch.IsEmpty() {
		return l.repo.GetByID(ctx, id)
	}
	invoice, err := l.transition(ctx, id, actor, func(tx Repository, inv *Invoice) error {
		return ApplyAdjustment(inv, patch, l.now())
	})
	if err != nil {
		return nil, err
	}
	l.publish(ctx, notifications.EventInvoiceAdjusted, invoice, actor, map[string]interface{}{
		"status":         invoice.Status,
		"payment_method": invoice.PaymentMethod,
	})
	return invoice, nil
}

// transition loads the invoice under a row lock, applies step and saves the
// result in the same transaction. Nothing is written when step fails.
func (l *ledger) transition(ctx context.Context, id int64, actor string, step func(tx Repository, inv *Invoice) error) (*Invoice, error) {
	var (
		result *Invoice
		from   Status
	)
	err := l.repo.Transaction(ctx, func(tx Repository) error {
		inv, err := tx.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from = inv.Status
		if err := step(tx, inv); err != nil {
			return err
		}
		if err := tx.Save(ctx, inv); err != nil {
			return err
		}
		result = inv
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("invoice %d: %w", id, err)
	}

	if from != result.Status {
		l.log.LogInvoiceTransition(ctx, result.ID, string(from), string(result.Status), actor)
	}
	return result, nil
}

func (l *ledger) publish(ctx context.Context, eventType notifications.EventType, inv *Invoice, actor string, payload map[string]interface{}) {
	event := notifications.NewEvent(eventType, payload).ForInvoice(inv.ID).By(actor)
	if inv.CourtBookingID != nil {
		event.ForBooking(*inv.CourtBookingID)
	}
	notifications.Emit(ctx, l.publisher, event)
}
