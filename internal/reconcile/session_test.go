package reconcile

import (
	"errors"
	"testing"

	"courtly/internal/bookings"
	"courtly/internal/catalog"
	"courtly/internal/shared/apperror"
	"courtly/internal/vouchers"
)

func TestSession_AddServiceToPaidBooking(t *testing.T) {
	store, cat := newFixture()
	store.vouchers = nil
	store.invoices = store.invoices[:1]

	s, err := NewSession(snapshotOf(store, cat))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if s.Original().Difference != 0 {
		t.Fatalf("original should be settled: %+v", s.Original())
	}

	if err := s.Vouchers().AddItemToPendingVoucher(4); err != nil {
		t.Fatalf("add: %v", err)
	}
	s.Vouchers().CommitPendingVoucher()

	current, err := s.Current()
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if current.Difference != 50000 {
		t.Fatalf("new difference = %d, want 50000", current.Difference)
	}
	if current.AlreadyPaid != 200000 {
		t.Fatalf("already paid must stay fixed, got %d", current.AlreadyPaid)
	}
	if s.Original().Difference != 0 {
		t.Fatal("original calculation must not change")
	}
}

func TestSession_Original(t *testing.T) {
	store, cat := newFixture()
	s, err := NewSession(snapshotOf(store, cat))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	got := s.Original()
	if got.CourtFee != 200000 || got.ServiceFee != 25000 || got.AlreadyPaid != 220000 || got.Difference != 5000 {
		t.Fatalf("unexpected original: %+v", got)
	}
}

func TestSession_HasChanges(t *testing.T) {
	tests := []struct {
		name      string
		edit      func(t *testing.T, s *Session)
		wantCourt bool
		wantSvc   bool
	}{
		{
			name: "no edit",
			edit: func(t *testing.T, s *Session) {},
		},
		{
			name: "same slots in another order",
			edit: func(t *testing.T, s *Session) {
				mustOK(t, s.SetSlots([]bookings.SlotWindow{
					{StartTime: at(9), EndTime: at(10)},
					{StartTime: at(8), EndTime: at(9)},
				}))
			},
		},
		{
			name: "other court",
			edit: func(t *testing.T, s *Session) {
				mustOK(t, s.SetCourt(&catalog.Court{ID: 2, BranchID: 1, BaseHourlyPrice: 150000}))
			},
			wantCourt: true,
		},
		{
			name: "slot moved",
			edit: func(t *testing.T, s *Session) {
				mustOK(t, s.SetSlots([]bookings.SlotWindow{
					{StartTime: at(8), EndTime: at(9)},
					{StartTime: at(10), EndTime: at(11)},
				}))
			},
			wantCourt: true,
		},
		{
			name: "quantity changed",
			edit: func(t *testing.T, s *Session) {
				mustOK(t, s.Vouchers().SetQuantity(1, 3))
			},
			wantSvc: true,
		},
		{
			name: "item added",
			edit: func(t *testing.T, s *Session) {
				mustOK(t, s.Vouchers().AddItemToPendingVoucher(3))
				s.Vouchers().CommitPendingVoucher()
			},
			wantSvc: true,
		},
		{
			name: "uncommitted draft is not a change",
			edit: func(t *testing.T, s *Session) {
				mustOK(t, s.Vouchers().AddItemToPendingVoucher(3))
			},
		},
		{
			name: "item removed",
			edit: func(t *testing.T, s *Session) {
				mustOK(t, s.Vouchers().RemoveItem(1))
			},
			wantSvc: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, cat := newFixture()
			s, err := NewSession(snapshotOf(store, cat))
			if err != nil {
				t.Fatalf("NewSession: %v", err)
			}
			tt.edit(t, s)

			if got := s.CourtTimeChanged(); got != tt.wantCourt {
				t.Errorf("CourtTimeChanged = %v, want %v", got, tt.wantCourt)
			}
			if got := s.ServicesChanged(); got != tt.wantSvc {
				t.Errorf("ServicesChanged = %v, want %v", got, tt.wantSvc)
			}
			if got := s.HasChanges(); got != (tt.wantCourt || tt.wantSvc) {
				t.Errorf("HasChanges = %v", got)
			}

			in := s.Instructions()
			if (in.CourtTime != nil) != tt.wantCourt || (in.Services != nil) != tt.wantSvc {
				t.Errorf("instructions do not match changes: %+v", in)
			}
		})
	}
}

func TestSession_InstructionsCarryRemovals(t *testing.T) {
	store, cat := newFixture()
	s, _ := NewSession(snapshotOf(store, cat))

	mustOK(t, s.Vouchers().RemoveVoucher(vouchers.Persisted(11)))
	in := s.Instructions()
	if in.CourtTime != nil {
		t.Fatal("court time was not edited")
	}
	if in.Services == nil || len(in.Services.RemovedItemIDs) != 1 || in.Services.RemovedItemIDs[0] != 110 {
		t.Fatalf("unexpected services update: %+v", in.Services)
	}
	if len(in.Services.RemovedVoucherIDs) != 1 || in.Services.RemovedVoucherIDs[0] != 11 {
		t.Fatalf("voucher removal missing: %+v", in.Services)
	}

	current, _ := s.Current()
	if current.Difference != 0 {
		t.Fatalf("removing the unpaid towel settles the booking, got %d", current.Difference)
	}
}

func TestSession_SetSlotsValidates(t *testing.T) {
	store, cat := newFixture()
	s, _ := NewSession(snapshotOf(store, cat))

	err := s.SetSlots([]bookings.SlotWindow{
		{StartTime: at(8), EndTime: at(10)},
		{StartTime: at(9), EndTime: at(11)},
	})
	if !errors.Is(err, apperror.ErrInvalidTimeRange) {
		t.Fatalf("overlap should be rejected, got %v", err)
	}
	if err := s.SetSlots(nil); !errors.Is(err, apperror.ErrInsufficientSelection) {
		t.Fatalf("empty slot set should be rejected, got %v", err)
	}
	if s.CourtTimeChanged() {
		t.Fatal("rejected slots must not be applied")
	}
}

func TestSession_ShorterBookingOwesRefund(t *testing.T) {
	store, cat := newFixture()
	s, _ := NewSession(snapshotOf(store, cat))
	mustOK(t, s.SetSlots([]bookings.SlotWindow{{StartTime: at(8), EndTime: at(9)}}))

	current, err := s.Current()
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	// 100,000 court + 25,000 services - 220,000 paid
	if current.Difference != -95000 {
		t.Fatalf("difference = %d, want -95000", current.Difference)
	}
}

func mustOK(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSession_ItemsEdited(t *testing.T) {
	tests := []struct {
		name string
		edit func(t *testing.T, s *Session)
		want bool
	}{
		{
			name: "no edit",
			edit: func(t *testing.T, s *Session) {},
		},
		{
			name: "quantity set back to stored value",
			edit: func(t *testing.T, s *Session) {
				mustOK(t, s.Vouchers().SetQuantity(1, 3))
				mustOK(t, s.Vouchers().SetQuantity(1, 1))
			},
		},
		{
			name: "stored window moved",
			edit: func(t *testing.T, s *Session) {
				mustOK(t, s.Vouchers().SetItemWindow(1, at(8), at(9)))
			},
			want: true,
		},
		{
			name: "stored item replaced by the same service",
			edit: func(t *testing.T, s *Session) {
				mustOK(t, s.Vouchers().RemoveItem(1))
				mustOK(t, s.Vouchers().AddItemToPendingVoucher(2))
				s.Vouchers().CommitPendingVoucher()
			},
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, cat := newFixture()
			s, err := NewSession(snapshotOf(store, cat))
			if err != nil {
				t.Fatalf("NewSession: %v", err)
			}
			tt.edit(t, s)

			if got := s.ItemsEdited(); got != tt.want {
				t.Errorf("ItemsEdited = %v, want %v", got, tt.want)
			}
			if s.ServicesChanged() {
				t.Error("line comparison should see no change")
			}
			if got := s.Instructions().Services != nil; got != tt.want {
				t.Errorf("services written = %v, want %v", got, tt.want)
			}
		})
	}
}
