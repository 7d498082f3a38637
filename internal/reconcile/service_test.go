package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"courtly/internal/bookings"
	"courtly/internal/notifications"
	"courtly/internal/shared/apperror"
	"courtly/internal/vouchers"
)

func TestQuote(t *testing.T) {
	store, cat := newFixture()
	svc := newTestService(store, cat, nil)

	q, err := svc.Quote(context.Background(), 1)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.Version != 1 || q.Calculation.TotalAmount != 225000 || q.Calculation.Difference != 5000 {
		t.Fatalf("unexpected quote: %+v", q)
	}

	if _, err := svc.Quote(context.Background(), 99); !errors.Is(err, apperror.ErrReferenceNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

// a new service on a fully paid booking opens a fresh voucher and a balance
func TestSave_AddServiceToPaidBooking(t *testing.T) {
	store, cat := newFixture()
	store.vouchers = nil
	store.invoices = store.invoices[:1]
	pub := &recordingPublisher{}
	svc := newTestService(store, cat, pub)

	result, err := svc.Save(context.Background(), 1, EditRequest{
		Version: 1,
		Actions: []ServiceAction{{Op: OpAddItem, BranchServiceID: 4}},
	}, "staff@example.com")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if !result.Saved || result.Version != 2 {
		t.Fatalf("expected saved at version 2, got %+v", result)
	}
	if result.Original.Difference != 0 || result.Current.Difference != 50000 {
		t.Fatalf("original %d, current %d", result.Original.Difference, result.Current.Difference)
	}
	if result.CourtTimeChanged || !result.ServicesChanged {
		t.Fatal("only services changed")
	}
	if id, ok := result.CreatedVouchers["pending-1"]; !ok || id != 101 {
		t.Fatalf("created vouchers = %v", result.CreatedVouchers)
	}

	if store.booking.Version != 2 || store.itemCount() != 1 {
		t.Fatalf("store not updated: version %d, items %d", store.booking.Version, store.itemCount())
	}
	if len(pub.events) != 1 || pub.events[0].Type != notifications.EventBookingEdited {
		t.Fatalf("expected one booking.edited event, got %d", len(pub.events))
	}
	if pub.events[0].Payload["difference"] != int64(50000) {
		t.Fatalf("event difference = %v", pub.events[0].Payload["difference"])
	}
}

func TestSave_CourtTimeOnly(t *testing.T) {
	store, cat := newFixture()
	svc := newTestService(store, cat, nil)
	court := int64(2)

	result, err := svc.Save(context.Background(), 1, EditRequest{
		Version: 1,
		CourtID: &court,
		Slots:   []bookings.SlotWindow{{StartTime: at(17), EndTime: at(19)}},
	}, "staff")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !result.CourtTimeChanged || result.ServicesChanged {
		t.Fatalf("unexpected change flags: %+v", result)
	}
	if result.Instructions.Services != nil {
		t.Fatal("services must not be written when unchanged")
	}
	// 2h at 150,000 + 25,000 services - 220,000 paid
	if result.Current.Difference != 105000 {
		t.Fatalf("difference = %d, want 105000", result.Current.Difference)
	}
	if store.booking.CourtID != 2 || len(store.booking.Slots) != 1 || !store.booking.Slots[0].StartTime.Equal(at(17)) {
		t.Fatalf("court time not written: %+v", store.booking)
	}
}

func TestSave_NoChangesWritesNothing(t *testing.T) {
	store, cat := newFixture()
	pub := &recordingPublisher{}
	svc := newTestService(store, cat, pub)

	result, err := svc.Save(context.Background(), 1, EditRequest{Version: 1}, "staff")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if result.Saved || result.HasChanges {
		t.Fatalf("nothing should be saved: %+v", result)
	}
	if store.commits != 0 || store.booking.Version != 1 || len(pub.events) != 0 {
		t.Fatal("no write or event expected")
	}
}

func TestSave_LockedRemovalRejected(t *testing.T) {
	store, cat := newFixture()
	svc := newTestService(store, cat, nil)

	_, err := svc.Save(context.Background(), 1, EditRequest{
		Version: 1,
		Actions: []ServiceAction{{Op: OpRemoveItem, Index: 0}},
	}, "staff")
	if !errors.Is(err, apperror.ErrVoucherLocked) {
		t.Fatalf("expected voucher locked, got %v", err)
	}
	if store.commits != 0 || store.itemCount() != 2 {
		t.Fatal("rejected edit must not write")
	}
}

// a voucher committed earlier in the same edit can no longer be removed
func TestPreview_SessionVoucherLocked(t *testing.T) {
	store, cat := newFixture()
	svc := newTestService(store, cat, nil)
	pending := vouchers.Pending(1)

	_, err := svc.Preview(context.Background(), 1, EditRequest{
		Version: 1,
		Actions: []ServiceAction{
			{Op: OpAddItem, BranchServiceID: 3},
			{Op: OpCommitVoucher},
			{Op: OpRemoveVoucher, VoucherID: &pending},
		},
	})
	if !errors.Is(err, apperror.ErrVoucherLocked) {
		t.Fatalf("expected voucher locked, got %v", err)
	}
}

func TestPreview_DoesNotWrite(t *testing.T) {
	store, cat := newFixture()
	svc := newTestService(store, cat, nil)

	result, err := svc.Preview(context.Background(), 1, EditRequest{
		Version: 1,
		Actions: []ServiceAction{{Op: OpSetQuantity, Index: 1, Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if !result.HasChanges || result.Saved {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Current.Difference != 15000 {
		t.Fatalf("difference = %d, want 15000", result.Current.Difference)
	}
	if store.commits != 0 {
		t.Fatal("preview must not write")
	}
}

func TestSave_VersionConflict(t *testing.T) {
	t.Run("stale version in request", func(t *testing.T) {
		store, cat := newFixture()
		store.booking.Version = 4
		svc := newTestService(store, cat, nil)

		_, err := svc.Save(context.Background(), 1, EditRequest{
			Version: 3,
			Actions: []ServiceAction{{Op: OpRemoveItem, Index: 1}},
		}, "staff")
		if !errors.Is(err, apperror.ErrConcurrentModification) {
			t.Fatalf("expected concurrent modification, got %v", err)
		}
	})

	t.Run("booking changes between load and write", func(t *testing.T) {
		store, cat := newFixture()
		store.beforeWrite = func(s *memStore) { s.booking.Version++ }
		svc := newTestService(store, cat, nil)

		_, err := svc.Save(context.Background(), 1, EditRequest{
			Version: 1,
			Actions: []ServiceAction{{Op: OpRemoveItem, Index: 1}},
		}, "staff")
		if !errors.Is(err, apperror.ErrConcurrentModification) {
			t.Fatalf("expected concurrent modification, got %v", err)
		}
		if store.itemCount() != 2 {
			t.Fatal("services must not be written after a version conflict")
		}
	})
}

func TestSave_RollsBackBothHalves(t *testing.T) {
	store, cat := newFixture()
	store.failApply = errBoom
	svc := newTestService(store, cat, nil)

	_, err := svc.Save(context.Background(), 1, EditRequest{
		Version: 1,
		Slots:   []bookings.SlotWindow{{StartTime: at(12), EndTime: at(14)}},
		Actions: []ServiceAction{{Op: OpRemoveItem, Index: 1}},
	}, "staff")
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected the services error, got %v", err)
	}
	if store.booking.Version != 1 || !store.booking.Slots[0].StartTime.Equal(at(8)) {
		t.Fatalf("court time must be rolled back: %+v", store.booking)
	}
	if store.itemCount() != 2 {
		t.Fatal("services must be rolled back")
	}
}

func TestSave_CancelledBooking(t *testing.T) {
	store, cat := newFixture()
	store.booking.Status = bookings.StatusCancelled
	svc := newTestService(store, cat, nil)

	_, err := svc.Save(context.Background(), 1, EditRequest{
		Version: 1,
		Actions: []ServiceAction{{Op: OpRemoveItem, Index: 1}},
	}, "staff")
	if !errors.Is(err, apperror.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	if _, err := svc.Quote(context.Background(), 1); err != nil {
		t.Fatalf("cancelled bookings can still be priced: %v", err)
	}
}

func TestServices(t *testing.T) {
	store, cat := newFixture()
	svc := newTestService(store, cat, nil)

	view, err := svc.Services(context.Background(), 1)
	if err != nil {
		t.Fatalf("Services: %v", err)
	}
	if len(view.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(view.Groups))
	}
	if !view.Groups[0].Locked || view.Groups[1].Locked {
		t.Fatalf("lock flags wrong: %+v", view.Groups)
	}
}

func TestDeposit(t *testing.T) {
	store, cat := newFixture()
	svc := newTestService(store, cat, nil)

	early, err := svc.Deposit(context.Background(), 1, "counter", at(8).Add(-48*time.Hour))
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if !early.Required || early.Amount != 60000 {
		t.Fatalf("unexpected early decision: %+v", early)
	}

	late, _ := svc.Deposit(context.Background(), 1, "counter", at(7))
	if late.Required || late.Amount != 0 {
		t.Fatalf("no deposit inside the cancel window: %+v", late)
	}

	online, _ := svc.Deposit(context.Background(), 1, "online", at(8).Add(-48*time.Hour))
	if online.Required {
		t.Fatal("online payments never need a deposit")
	}
}

func TestWatchDeposit_ClosesAfterStart(t *testing.T) {
	store, cat := newFixture()
	svc := newTestService(store, cat, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// the fixture's slot is in the past, so one decision is sent and the stream ends
	ch, err := svc.WatchDeposit(ctx, 1, "counter")
	if err != nil {
		t.Fatalf("WatchDeposit: %v", err)
	}
	var n int
	for d := range ch {
		n++
		if d.Required {
			t.Fatalf("past slot cannot require a deposit: %+v", d)
		}
	}
	if n != 1 {
		t.Fatalf("expected one decision, got %d", n)
	}
}

// moving a stored hourly item keeps the same lines but must still be written
func TestSave_StoredItemWindowOnly(t *testing.T) {
	store, cat := newFixture()
	store.vouchers = append(store.vouchers, vouchers.ServiceBooking{
		ID: 12, CourtBookingID: 1, Status: vouchers.StatusActive, Items: []vouchers.ServiceBookingItem{
			{ID: 120, ServiceBookingID: 12, BranchServiceID: 3, Quantity: 1, StartTime: at(8), EndTime: at(10)},
		},
	})
	pub := &recordingPublisher{}
	svc := newTestService(store, cat, pub)
	start, end := at(8), at(9)

	result, err := svc.Save(context.Background(), 1, EditRequest{
		Version: 1,
		Actions: []ServiceAction{{Op: OpSetItemWindow, Index: 2, StartTime: &start, EndTime: &end}},
	}, "staff")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if result.HasChanges || !result.ItemsEdited {
		t.Fatalf("expected an item edit without line changes: %+v", result)
	}
	if result.Original.TotalAmount != 345000 || result.Current.TotalAmount != 285000 || result.Current.Difference != 65000 {
		t.Fatalf("original %d, current %d, difference %d",
			result.Original.TotalAmount, result.Current.TotalAmount, result.Current.Difference)
	}
	if !result.Saved || result.Version != 2 || store.commits != 1 || store.booking.Version != 2 {
		t.Fatalf("edit not saved: saved %v, commits %d, version %d", result.Saved, store.commits, store.booking.Version)
	}
	if got := store.vouchers[2].Items[0].EndTime; !got.Equal(at(9)) {
		t.Fatalf("stored end time = %v, want 09:00", got)
	}
	if len(pub.events) != 1 || pub.events[0].Payload["items_edited"] != true {
		t.Fatalf("expected booking.edited with items_edited, got %d events", len(pub.events))
	}

	q, err := svc.Quote(context.Background(), 1)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.Calculation.TotalAmount != 285000 {
		t.Fatalf("reloaded total = %d, want 285000", q.Calculation.TotalAmount)
	}
}

// removing a stored towel and adding a new one compares equal by line, yet
// the removal and the new voucher are both written
func TestSave_ReplaceStoredItemWithSameService(t *testing.T) {
	store, cat := newFixture()
	svc := newTestService(store, cat, nil)

	result, err := svc.Save(context.Background(), 1, EditRequest{
		Version: 1,
		Actions: []ServiceAction{
			{Op: OpRemoveItem, Index: 1},
			{Op: OpAddItem, BranchServiceID: 2},
			{Op: OpCommitVoucher},
		},
	}, "staff")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if result.ServicesChanged || result.HasChanges || !result.ItemsEdited {
		t.Fatalf("unexpected change flags: %+v", result)
	}
	update := result.Instructions.Services
	if update == nil || len(update.RemovedItemIDs) != 1 || update.RemovedItemIDs[0] != 110 {
		t.Fatalf("services instructions = %+v", update)
	}
	if result.Current.TotalAmount != result.Original.TotalAmount {
		t.Fatalf("total moved from %d to %d", result.Original.TotalAmount, result.Current.TotalAmount)
	}

	if !result.Saved || store.commits != 1 {
		t.Fatal("edit must be saved")
	}
	if len(store.vouchers[1].Items) != 0 {
		t.Fatalf("item 110 still stored: %+v", store.vouchers[1].Items)
	}
	if id := result.CreatedVouchers["pending-1"]; id != 101 {
		t.Fatalf("created vouchers = %v", result.CreatedVouchers)
	}
	last := store.vouchers[len(store.vouchers)-1]
	if last.ID != 101 || len(last.Items) != 1 || last.Items[0].BranchServiceID != 2 {
		t.Fatalf("new voucher = %+v", last)
	}
}

func TestPreview_CourtInAnotherBranch(t *testing.T) {
	store, cat := newFixture()
	svc := newTestService(store, cat, nil)
	court := int64(3)

	result, err := svc.Preview(context.Background(), 1, EditRequest{
		Version: 1,
		CourtID: &court,
		Actions: []ServiceAction{{Op: OpAddItem, BranchServiceID: 5}},
	})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	// 2h at 120,000 + racket 20,000 + towel 5,000 + tube 40,000 - 220,000 paid
	if result.Current.CourtFee != 240000 || result.Current.ServiceFee != 65000 || result.Current.Difference != 85000 {
		t.Fatalf("unexpected current: %+v", result.Current)
	}

	for _, bsID := range []int64{1, 4} {
		_, err := svc.Preview(context.Background(), 1, EditRequest{
			Version: 1,
			CourtID: &court,
			Actions: []ServiceAction{{Op: OpAddItem, BranchServiceID: bsID}},
		})
		if !errors.Is(err, apperror.ErrReferenceNotFound) {
			t.Fatalf("branch service %d: expected not found, got %v", bsID, err)
		}
	}
}
