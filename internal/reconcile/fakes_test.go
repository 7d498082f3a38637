package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"courtly/internal/bookings"
	"courtly/internal/catalog"
	"courtly/internal/invoices"
	"courtly/internal/notifications"
	"courtly/internal/shared/apperror"
	"courtly/internal/vouchers"
)

var day = time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC)

func at(h int) time.Time {
	return day.Add(time.Duration(h) * time.Hour)
}

func ptr(v int64) *int64 { return &v }

// memStore is an in-memory booking with its vouchers and invoices. Do runs
// writes against a copy and keeps it only when fn succeeds.
type memStore struct {
	mu       sync.Mutex
	booking  bookings.CourtBooking
	vouchers []vouchers.ServiceBooking
	invoices []invoices.Invoice

	nextVoucherID int64
	nextItemID    int64

	// beforeWrite runs inside Do before fn, to simulate a concurrent writer.
	beforeWrite func(s *memStore)
	failApply   error

	commits int
}

func newMemStore(booking bookings.CourtBooking) *memStore {
	return &memStore{booking: booking, nextVoucherID: 100, nextItemID: 1000}
}

func (s *memStore) GetByID(ctx context.Context, id int64) (*bookings.CourtBooking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != s.booking.ID {
		return nil, apperror.Newf(apperror.ErrReferenceNotFound, "booking %d not found", id)
	}
	b := s.booking
	b.Slots = append([]bookings.BookingSlot(nil), s.booking.Slots...)
	return &b, nil
}

func (s *memStore) ListVouchers(ctx context.Context, bookingID int64) ([]vouchers.ServiceBooking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []vouchers.ServiceBooking
	for _, v := range cloneVouchers(s.vouchers) {
		if v.CourtBookingID == bookingID && v.Status == vouchers.StatusActive {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *memStore) ListForBooking(ctx context.Context, bookingID int64) ([]invoices.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]invoices.Invoice(nil), s.invoices...), nil
}

func (s *memStore) Do(ctx context.Context, fn func(w Writers) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.beforeWrite != nil {
		s.beforeWrite(s)
	}
	work := s.clone()
	if err := fn(Writers{Bookings: work, Services: work}); err != nil {
		return err
	}
	s.booking = work.booking
	s.vouchers = work.vouchers
	s.nextVoucherID = work.nextVoucherID
	s.nextItemID = work.nextItemID
	s.commits++
	return nil
}

func (s *memStore) clone() *memStore {
	c := &memStore{
		booking:       s.booking,
		vouchers:      cloneVouchers(s.vouchers),
		invoices:      s.invoices,
		nextVoucherID: s.nextVoucherID,
		nextItemID:    s.nextItemID,
		failApply:     s.failApply,
	}
	c.booking.Slots = append([]bookings.BookingSlot(nil), s.booking.Slots...)
	return c
}

func (s *memStore) UpdateCourtTime(ctx context.Context, id, expectedVersion, courtID int64, windows []bookings.SlotWindow) error {
	if s.booking.Version != expectedVersion {
		return apperror.Newf(apperror.ErrConcurrentModification, "booking %d changed since it was loaded", id)
	}
	s.booking.CourtID = courtID
	s.booking.Slots = bookings.NewSlots(courtID, windows)
	s.booking.Version++
	return nil
}

func (s *memStore) TouchVersion(ctx context.Context, id, expectedVersion int64) error {
	if s.booking.Version != expectedVersion {
		return apperror.Newf(apperror.ErrConcurrentModification, "booking %d changed since it was loaded", id)
	}
	s.booking.Version++
	return nil
}

func (s *memStore) ApplyServices(ctx context.Context, bookingID int64, update vouchers.ServicesUpdate) (map[vouchers.VoucherID]int64, error) {
	if s.failApply != nil {
		return nil, s.failApply
	}
	paid := map[int64]bool{}
	for _, inv := range s.invoices {
		if inv.ServiceBookingID != nil && inv.Status == invoices.StatusPaid {
			paid[*inv.ServiceBookingID] = true
		}
	}

	removed := map[int64]bool{}
	for _, id := range update.RemovedItemIDs {
		removed[id] = true
	}
	for vi := range s.vouchers {
		v := &s.vouchers[vi]
		for _, id := range update.RemovedVoucherIDs {
			if v.ID == id {
				if paid[v.ID] {
					return nil, apperror.Newf(apperror.ErrVoucherLocked, "voucher %d is paid", v.ID)
				}
				v.Status = vouchers.StatusCancelled
			}
		}
		kept := v.Items[:0:0]
		for _, it := range v.Items {
			if removed[it.ID] {
				if paid[v.ID] {
					return nil, apperror.Newf(apperror.ErrVoucherLocked, "item %d is in paid voucher %d", it.ID, v.ID)
				}
				continue
			}
			kept = append(kept, it)
		}
		v.Items = kept
	}

	created := map[vouchers.VoucherID]int64{}
	for _, it := range update.Items {
		if it.IsPersisted() {
			if err := s.updateItem(paid, it); err != nil {
				return nil, err
			}
			continue
		}
		id, ok := created[it.Voucher]
		if !ok {
			s.nextVoucherID++
			id = s.nextVoucherID
			created[it.Voucher] = id
			s.vouchers = append(s.vouchers, vouchers.ServiceBooking{ID: id, CourtBookingID: bookingID, Status: vouchers.StatusActive})
		}
		s.nextItemID++
		for vi := range s.vouchers {
			if s.vouchers[vi].ID == id {
				s.vouchers[vi].Items = append(s.vouchers[vi].Items, vouchers.ServiceBookingItem{
					ID: s.nextItemID, ServiceBookingID: id, BranchServiceID: it.BranchServiceID,
					Quantity: it.Quantity, StartTime: it.StartTime, EndTime: it.EndTime,
				})
			}
		}
	}
	return created, nil
}

func (s *memStore) updateItem(paid map[int64]bool, it vouchers.Item) error {
	for vi := range s.vouchers {
		v := &s.vouchers[vi]
		for ii := range v.Items {
			row := &v.Items[ii]
			if row.ID != it.ID {
				continue
			}
			if row.Quantity == it.Quantity && row.StartTime.Equal(it.StartTime) && row.EndTime.Equal(it.EndTime) {
				return nil
			}
			if paid[v.ID] {
				return apperror.Newf(apperror.ErrVoucherLocked, "item %d is in paid voucher %d", it.ID, v.ID)
			}
			row.Quantity, row.StartTime, row.EndTime = it.Quantity, it.StartTime, it.EndTime
			return nil
		}
	}
	return apperror.Newf(apperror.ErrReferenceNotFound, "item %d not found", it.ID)
}

func cloneVouchers(in []vouchers.ServiceBooking) []vouchers.ServiceBooking {
	out := make([]vouchers.ServiceBooking, len(in))
	for i, v := range in {
		v.Items = append([]vouchers.ServiceBookingItem(nil), v.Items...)
		out[i] = v
	}
	return out
}

func (s *memStore) itemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.vouchers {
		if v.Status == vouchers.StatusActive {
			n += len(v.Items)
		}
	}
	return n
}

type fakeCatalog struct {
	courts         map[int64]*catalog.Court
	branchServices []catalog.BranchService
	services       []catalog.Service
}

func (f *fakeCatalog) GetCourt(ctx context.Context, id int64) (*catalog.Court, error) {
	c, ok := f.courts[id]
	if !ok {
		return nil, apperror.Newf(apperror.ErrReferenceNotFound, "court %d not found", id)
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCatalog) GetServices(ctx context.Context, ids []int64) ([]catalog.Service, error) {
	var out []catalog.Service
	for _, s := range f.services {
		for _, id := range ids {
			if s.ID == id {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func (f *fakeCatalog) GetBranchServices(ctx context.Context, ids []int64) ([]catalog.BranchService, error) {
	var out []catalog.BranchService
	for _, bs := range f.branchServices {
		for _, id := range ids {
			if bs.ID == id {
				out = append(out, bs)
			}
		}
	}
	return out, nil
}

func (f *fakeCatalog) ListBranchServices(ctx context.Context, branchID int64) ([]catalog.BranchService, error) {
	var out []catalog.BranchService
	for _, bs := range f.branchServices {
		if bs.BranchID == branchID {
			out = append(out, bs)
		}
	}
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*notifications.Event
}

func (r *recordingPublisher) Publish(ctx context.Context, e *notifications.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

var errBoom = errors.New("boom")

// fixture: booking 1 on court 1 (100,000/h) from 08:00 to 10:00 in two slots,
// fully paid by a 200,000 invoice. Voucher 10 (paid) holds one racket.
// Voucher 11 (unpaid) holds one towel. Court 3 and branch service 5 belong
// to branch 2.
func newFixture() (*memStore, *fakeCatalog) {
	store := newMemStore(bookings.CourtBooking{
		ID: 1, CourtID: 1, CustomerID: 5, Status: bookings.StatusConfirmed, Version: 1,
		Slots: []bookings.BookingSlot{
			{ID: 1, BookingID: 1, CourtID: 1, StartTime: at(8), EndTime: at(9)},
			{ID: 2, BookingID: 1, CourtID: 1, StartTime: at(9), EndTime: at(10)},
		},
	})
	store.vouchers = []vouchers.ServiceBooking{
		{ID: 10, CourtBookingID: 1, Status: vouchers.StatusActive, Items: []vouchers.ServiceBookingItem{
			{ID: 100, ServiceBookingID: 10, BranchServiceID: 1, Quantity: 1, StartTime: at(8), EndTime: at(10)},
		}},
		{ID: 11, CourtBookingID: 1, Status: vouchers.StatusActive, Items: []vouchers.ServiceBookingItem{
			{ID: 110, ServiceBookingID: 11, BranchServiceID: 2, Quantity: 1, StartTime: at(8), EndTime: at(10)},
		}},
	}
	store.invoices = []invoices.Invoice{
		{ID: 1, Status: invoices.StatusPaid, TotalAmount: 200000, CourtBookingID: ptr(1)},
		{ID: 2, Status: invoices.StatusPaid, TotalAmount: 20000, ServiceBookingID: ptr(10)},
		{ID: 3, Status: invoices.StatusUnpaid, TotalAmount: 5000, ServiceBookingID: ptr(11)},
	}

	cat := &fakeCatalog{
		courts: map[int64]*catalog.Court{
			1: {ID: 1, BranchID: 1, BaseHourlyPrice: 100000},
			2: {ID: 2, BranchID: 1, BaseHourlyPrice: 150000},
			3: {ID: 3, BranchID: 2, BaseHourlyPrice: 120000},
		},
		services: []catalog.Service{
			{ID: 1, Name: "Racket", Unit: catalog.UnitItem},
			{ID: 2, Name: "Towel", Unit: catalog.UnitItem},
			{ID: 3, Name: "Coach", Unit: catalog.UnitHour},
			{ID: 4, Name: "Shuttle tube", Unit: catalog.UnitItem},
		},
		branchServices: []catalog.BranchService{
			{ID: 1, BranchID: 1, ServiceID: 1, UnitPrice: 20000},
			{ID: 2, BranchID: 1, ServiceID: 2, UnitPrice: 5000},
			{ID: 3, BranchID: 1, ServiceID: 3, UnitPrice: 60000},
			{ID: 4, BranchID: 1, ServiceID: 4, UnitPrice: 50000},
			{ID: 5, BranchID: 2, ServiceID: 4, UnitPrice: 40000},
		},
	}
	return store, cat
}

func newTestService(store *memStore, cat *fakeCatalog, pub notifications.Publisher) Service {
	return NewService(Deps{
		Bookings:   store,
		Vouchers:   store,
		Invoices:   store,
		Catalog:    cat,
		UnitOfWork: store,
		Publisher:  pub,
	})
}

func snapshotOf(store *memStore, cat *fakeCatalog) Snapshot {
	ctx := context.Background()
	b, _ := store.GetByID(ctx, 1)
	court, _ := cat.GetCourt(ctx, b.CourtID)
	list, _ := store.ListVouchers(ctx, 1)
	invs, _ := store.ListForBooking(ctx, 1)
	ref, _ := catalog.LoadReference(ctx, cat, court, nil)
	return Snapshot{
		Booking:        b,
		Court:          court,
		Vouchers:       list,
		Invoices:       invs,
		BranchServices: ref.BranchServices,
		Services:       ref.Services,
	}
}
