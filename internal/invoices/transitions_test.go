package invoices

import (
	"errors"
	"testing"
	"time"

	"courtly/internal/shared/apperror"
)

var now = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func TestMarkPaid(t *testing.T) {
	tests := []struct {
		from    Status
		wantErr bool
	}{
		{StatusUnpaid, false},
		{StatusPending, false},
		{StatusPaid, true},
		{StatusCancelled, true},
		{StatusRefunded, true},
		{StatusPartiallyRefunded, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			inv := &Invoice{ID: 1, Status: tt.from, TotalAmount: 1000}
			err := MarkPaid(inv, now)
			if tt.wantErr {
				if !errors.Is(err, apperror.ErrInvalidState) {
					t.Fatalf("expected invalid state, got %v", err)
				}
				if inv.Status != tt.from || inv.PaidAt != nil {
					t.Fatalf("rejected transition changed invoice: %+v", inv)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if inv.Status != StatusPaid || inv.PaidAt == nil {
				t.Fatalf("expected PAID with timestamp, got %+v", inv)
			}
		})
	}
}

func TestCancelPaid(t *testing.T) {
	tests := []struct {
		from    Status
		wantErr bool
	}{
		{StatusPaid, false},
		{StatusUnpaid, true},
		{StatusPending, true},
		{StatusCancelled, true},
		{StatusRefunded, true},
		{StatusPartiallyRefunded, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			inv := &Invoice{ID: 1, Status: tt.from, TotalAmount: 1000}
			err := CancelPaid(inv, "customer no-show", "staff@courtly.dev", now)
			if tt.wantErr {
				if !errors.Is(err, apperror.ErrInvalidState) {
					t.Fatalf("expected invalid state, got %v", err)
				}
				if inv.Status != tt.from || inv.CancelReason != "" {
					t.Fatalf("rejected cancel changed invoice: %+v", inv)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if inv.Status != StatusCancelled || inv.CancelledBy != "staff@courtly.dev" || inv.CancelledAt == nil {
				t.Fatalf("cancel metadata not recorded: %+v", inv)
			}
		})
	}
}

func TestApplyRefund_PartialThenHistory(t *testing.T) {
	inv := &Invoice{ID: 5, Status: StatusPaid, TotalAmount: 300000}

	entry, err := ApplyRefund(inv, 100000, "court closed early", "staff", now)
	if err != nil {
		t.Fatalf("first refund failed: %v", err)
	}
	if inv.Status != StatusPartiallyRefunded || inv.RefundAmount != 100000 {
		t.Fatalf("expected PARTIALLY_REFUNDED with 100000 refunded, got %s/%d", inv.Status, inv.RefundAmount)
	}
	if entry.Amount != 100000 || entry.InvoiceID != 5 {
		t.Fatalf("unexpected refund entry: %+v", entry)
	}

	before := *inv
	_, err = ApplyRefund(inv, 250000, "second request", "staff", now.Add(time.Hour))
	if !errors.Is(err, apperror.ErrRefundExceedsTotal) {
		t.Fatalf("expected refund exceeds total, got %v", err)
	}
	if *inv != before {
		t.Fatalf("rejected refund changed invoice:\n got %+v\nwant %+v", *inv, before)
	}
}

func TestApplyRefund_ReachingTotalIsRefunded(t *testing.T) {
	inv := &Invoice{ID: 5, Status: StatusPaid, TotalAmount: 300000}

	for _, amount := range []int64{100000, 150000, 50000} {
		if _, err := ApplyRefund(inv, amount, "split refund", "staff", now); err != nil {
			t.Fatalf("refund %d failed: %v", amount, err)
		}
		if inv.RefundAmount > inv.TotalAmount {
			t.Fatalf("refund_amount %d exceeds total %d", inv.RefundAmount, inv.TotalAmount)
		}
	}
	if inv.Status != StatusRefunded {
		t.Fatalf("expected REFUNDED, got %s", inv.Status)
	}

	if _, err := ApplyRefund(inv, 1, "one more", "staff", now); !errors.Is(err, apperror.ErrInvalidState) {
		t.Fatalf("refunded invoice is terminal, got %v", err)
	}
}

func TestApplyRefund_Guards(t *testing.T) {
	tests := []struct {
		name    string
		inv     Invoice
		amount  int64
		wantErr error
	}{
		{"full refund of paid", Invoice{Status: StatusPaid, TotalAmount: 500}, 500, nil},
		{"single refund above total", Invoice{Status: StatusPaid, TotalAmount: 500}, 501, apperror.ErrRefundExceedsTotal},
		{"unpaid invoice", Invoice{Status: StatusUnpaid, TotalAmount: 500}, 100, apperror.ErrInvalidState},
		{"cancelled invoice", Invoice{Status: StatusCancelled, TotalAmount: 500}, 100, apperror.ErrInvalidState},
		{"zero amount", Invoice{Status: StatusPaid, TotalAmount: 500}, 0, apperror.ErrInvalidState},
		{"negative amount", Invoice{Status: StatusPaid, TotalAmount: 500}, -5, apperror.ErrInvalidState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := tt.inv
			_, err := ApplyRefund(&inv, tt.amount, "reason", "staff", now)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if inv != tt.inv {
				t.Fatalf("rejected refund changed invoice")
			}
		})
	}
}

func TestApplyAdjustment(t *testing.T) {
	status := func(s Status) *Status { return &s }
	str := func(s string) *string { return &s }

	tests := []struct {
		name       string
		from       Status
		patch      AdjustPatch
		wantStatus Status
		wantErr    bool
	}{
		{"notes on paid invoice", StatusPaid, AdjustPatch{Notes: str("receipt #44")}, StatusPaid, false},
		{"method on unpaid invoice", StatusUnpaid, AdjustPatch{PaymentMethod: str(PaymentMethodOnline)}, StatusUnpaid, false},
		{"unpaid to pending", StatusUnpaid, AdjustPatch{Status: status(StatusPending)}, StatusPending, false},
		{"pending to paid", StatusPending, AdjustPatch{Status: status(StatusPaid)}, StatusPaid, false},
		{"same status is allowed", StatusPaid, AdjustPatch{Status: status(StatusPaid)}, StatusPaid, false},
		{"paid back to unpaid", StatusPaid, AdjustPatch{Status: status(StatusUnpaid)}, StatusPaid, true},
		{"skip cancel guards", StatusPaid, AdjustPatch{Status: status(StatusCancelled)}, StatusPaid, true},
		{"cancelled is terminal", StatusCancelled, AdjustPatch{Notes: str("x")}, StatusCancelled, true},
		{"refunded is terminal", StatusRefunded, AdjustPatch{Notes: str("x")}, StatusRefunded, true},
		{"partially refunded accepts notes", StatusPartiallyRefunded, AdjustPatch{Notes: str("x")}, StatusPartiallyRefunded, false},
		{"blank method", StatusUnpaid, AdjustPatch{PaymentMethod: str("  ")}, StatusUnpaid, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &Invoice{ID: 1, Status: tt.from, PaymentMethod: PaymentMethodCounter}
			err := ApplyAdjustment(inv, tt.patch, now)
			if tt.wantErr != (err != nil) {
				t.Fatalf("wantErr=%v, got %v", tt.wantErr, err)
			}
			if err != nil && !errors.Is(err, apperror.ErrInvalidState) {
				t.Fatalf("expected invalid state, got %v", err)
			}
			if inv.Status != tt.wantStatus {
				t.Fatalf("status = %s, want %s", inv.Status, tt.wantStatus)
			}
			if err != nil && (inv.Notes != "" || inv.PaymentMethod != PaymentMethodCounter) {
				t.Fatalf("rejected adjustment changed invoice: %+v", inv)
			}
		})
	}
}
