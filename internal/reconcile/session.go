package reconcile

import (
	"sort"
	"time"

	"courtly/internal/bookings"
	"courtly/internal/catalog"
	"courtly/internal/invoices"
	"courtly/internal/pricing"
	"courtly/internal/shared/apperror"
	"courtly/internal/vouchers"
)

// Snapshot is the stored state an edit session starts from.
type Snapshot struct {
	Booking        *bookings.CourtBooking
	Court          *catalog.Court
	Vouchers       []vouchers.ServiceBooking
	Invoices       []invoices.Invoice
	BranchServices map[int64]catalog.BranchService
	Services       map[int64]catalog.Service
	// Location is the timezone slot dates are compared in. Nil means UTC.
	Location *time.Location
}

// CourtTimeUpdate moves the booking to a court and slot set.
type CourtTimeUpdate struct {
	CourtID int64                 `json:"court_id"`
	Slots   []bookings.SlotWindow `json:"slots"`
}

// Instructions are the writes a save must perform. A nil part is unchanged.
type Instructions struct {
	CourtTime *CourtTimeUpdate         `json:"court_time,omitempty"`
	Services  *vouchers.ServicesUpdate `json:"services,omitempty"`
}

// IsEmpty reports a save with nothing to write.
func (i Instructions) IsEmpty() bool {
	return i.CourtTime == nil && i.Services == nil
}

// Session holds one booking edit in memory. Pricing is recomputed on every
// call to Current; the collected amount stays at its value from the original
// state for the whole session.
type Session struct {
	snap          Snapshot
	voucherIDs    []int64
	originalItems []vouchers.Item
	original      pricing.Calculation

	court   *catalog.Court
	slots   []bookings.SlotWindow
	manager *vouchers.Manager
}

// NewSession prices the original state and opens an editable copy of it.
func NewSession(snap Snapshot) (*Session, error) {
	if snap.Booking == nil {
		return nil, apperror.Newf(apperror.ErrReferenceNotFound, "booking is required")
	}
	if snap.Location == nil {
		snap.Location = time.UTC
	}

	slots := bookings.SortWindows(snap.Booking.Windows())
	start, end := span(slots)
	manager := vouchers.NewManager(vouchers.Input{
		Vouchers:       snap.Vouchers,
		Invoices:       snap.Invoices,
		BranchServices: snap.BranchServices,
		BranchID:       branchOf(snap.Court),
		DefaultStart:   start,
		DefaultEnd:     end,
	})

	s := &Session{
		snap:          snap,
		voucherIDs:    activeVoucherIDs(snap.Vouchers),
		originalItems: manager.ActiveItems(),
		court:         snap.Court,
		slots:         slots,
		manager:       manager,
	}

	original, err := pricing.Calculate(s.input(snap.Court, slots, s.originalItems))
	if err != nil {
		return nil, err
	}
	s.original = original
	return s, nil
}

// Booking returns the booking the session was opened on.
func (s *Session) Booking() *bookings.CourtBooking {
	return s.snap.Booking
}

// Original is the pricing of the stored state.
func (s *Session) Original() pricing.Calculation {
	return s.original
}

// Current prices the edited state against the original collected amount.
func (s *Session) Current() (pricing.Calculation, error) {
	return pricing.CalculateWithPaid(s.input(s.court, s.slots, s.manager.ActiveItems()), s.original.AlreadyPaid)
}

// Court is the court currently selected.
func (s *Session) Court() *catalog.Court {
	return s.court
}

// Slots is the slot set currently selected, ordered by start.
func (s *Session) Slots() []bookings.SlotWindow {
	return append([]bookings.SlotWindow(nil), s.slots...)
}

// SetCourt moves the edit to another court.
func (s *Session) SetCourt(court *catalog.Court) error {
	if court == nil {
		return apperror.Newf(apperror.ErrReferenceNotFound, "court is required")
	}
	s.court = court
	return nil
}

// SetReference swaps the price tables used for the edited state, after a move
// to a court in another branch. The original pricing is not recomputed.
func (s *Session) SetReference(ref *catalog.Reference) {
	s.snap.BranchServices = ref.BranchServices
	s.snap.Services = ref.Services
	s.manager.SetBranchServices(ref.BranchServices, branchOf(ref.Court))
}

// SetSlots replaces the slot set. Draft service items added afterwards
// default to the new span.
func (s *Session) SetSlots(windows []bookings.SlotWindow) error {
	if err := bookings.ValidateSlots(windows, s.snap.Location); err != nil {
		return err
	}
	s.slots = bookings.SortWindows(windows)
	start, end := span(s.slots)
	s.manager.SetDefaultWindow(start, end)
	return nil
}

// Vouchers exposes the service working set for item edits.
func (s *Session) Vouchers() *vouchers.Manager {
	return s.manager
}

// CourtTimeChanged reports a different court or slot set.
func (s *Session) CourtTimeChanged() bool {
	if s.court == nil || s.snap.Court == nil {
		return s.court != s.snap.Court
	}
	if s.court.ID != s.snap.Court.ID {
		return true
	}
	return !bookings.SameWindows(s.slots, s.snap.Booking.Windows())
}

// ServicesChanged compares the service lines by branch service and quantity.
// Windows are not compared, and removing a stored line then adding the same
// service at the same quantity reads as unchanged. ItemsEdited covers both.
func (s *Session) ServicesChanged() bool {
	return !sameLines(s.originalItems, s.manager.ActiveItems())
}

// ItemsEdited reports service writes the line comparison does not see: a
// stored item with a new window or quantity, a removed stored item or
// voucher, or a new item.
func (s *Session) ItemsEdited() bool {
	update := s.manager.Update()
	if len(update.RemovedItemIDs) > 0 || len(update.RemovedVoucherIDs) > 0 {
		return true
	}
	stored := make(map[int64]vouchers.Item, len(s.originalItems))
	for _, it := range s.originalItems {
		stored[it.ID] = it
	}
	for _, it := range update.Items {
		if !it.IsPersisted() {
			return true
		}
		before, ok := stored[it.ID]
		if !ok || itemEdited(before, it) {
			return true
		}
	}
	return false
}

// HasChanges is true when either the court time or the services differ from
// the stored state.
func (s *Session) HasChanges() bool {
	return s.CourtTimeChanged() || s.ServicesChanged()
}

// Instructions returns the writes for the parts that changed. Services are
// written when the lines changed or any item was edited.
func (s *Session) Instructions() Instructions {
	var out Instructions
	if s.CourtTimeChanged() {
		out.CourtTime = &CourtTimeUpdate{
			CourtID: s.court.ID,
			Slots:   s.Slots(),
		}
	}
	if s.ServicesChanged() || s.ItemsEdited() {
		update := s.manager.Update()
		out.Services = &update
	}
	return out
}

func (s *Session) input(court *catalog.Court, slots []bookings.SlotWindow, items []vouchers.Item) pricing.Input {
	return pricing.Input{
		BookingID:      s.snap.Booking.ID,
		Court:          court,
		Slots:          slots,
		Items:          items,
		BranchServices: s.snap.BranchServices,
		Services:       s.snap.Services,
		Invoices:       s.snap.Invoices,
		VoucherIDs:     s.voucherIDs,
	}
}

func branchOf(court *catalog.Court) int64 {
	if court == nil {
		return 0
	}
	return court.BranchID
}

func itemEdited(before, after vouchers.Item) bool {
	return before.Quantity != after.Quantity ||
		!before.StartTime.Equal(after.StartTime) ||
		!before.EndTime.Equal(after.EndTime)
}

func branchServiceIDs(items []vouchers.Item) []int64 {
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.BranchServiceID)
	}
	return ids
}

func activeVoucherIDs(list []vouchers.ServiceBooking) []int64 {
	ids := make([]int64, 0, len(list))
	for _, v := range list {
		if v.Status != vouchers.StatusCancelled {
			ids = append(ids, v.ID)
		}
	}
	return ids
}

// span is the first start and last end of sorted windows.
func span(sorted []bookings.SlotWindow) (time.Time, time.Time) {
	if len(sorted) == 0 {
		return time.Time{}, time.Time{}
	}
	end := sorted[0].EndTime
	for _, w := range sorted[1:] {
		if w.EndTime.After(end) {
			end = w.EndTime
		}
	}
	return sorted[0].StartTime, end
}

type line struct {
	branchServiceID int64
	quantity        int
}

func sameLines(a, b []vouchers.Item) bool {
	if len(a) != len(b) {
		return false
	}
	la, lb := lines(a), lines(b)
	for i := range la {
		if la[i] != lb[i] {
			return false
		}
	}
	return true
}

func lines(items []vouchers.Item) []line {
	out := make([]line, 0, len(items))
	for _, it := range items {
		out = append(out, line{branchServiceID: it.BranchServiceID, quantity: it.Quantity})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].branchServiceID != out[j].branchServiceID {
			return out[i].branchServiceID < out[j].branchServiceID
		}
		return out[i].quantity < out[j].quantity
	})
	return out
}
