package vouchers

import (
	"sort"
	"time"

	"courtly/internal/catalog"
	"courtly/internal/invoices"
	"courtly/internal/shared/apperror"
)

// Input is the stored state a Manager starts from.
type Input struct {
	Vouchers       []ServiceBooking
	Invoices       []invoices.Invoice
	BranchServices map[int64]catalog.BranchService
	// BranchID, when set, limits new items to services offered at that branch.
	BranchID int64
	// Default window for newly added items, normally the booking's slot span.
	DefaultStart time.Time
	DefaultEnd   time.Time
}

// Manager is the editable working set of a booking's service items, grouped by
// voucher. Items in a locked voucher cannot be changed or removed.
//
// A Manager is not safe for concurrent use; it belongs to one edit session.
type Manager struct {
	items   []Item
	pending []Item

	paid          map[int64]bool
	sessionLocked map[int]bool
	nextPending   int

	removedIDs        map[int64]struct{}
	removedVoucherIDs map[int64]struct{}

	branchServices map[int64]catalog.BranchService
	branchID       int64
	defaultStart   time.Time
	defaultEnd     time.Time

	// OnChange, when set, receives the new state after every mutation.
	OnChange func(Snapshot)
}

// NewManager builds a manager over the active vouchers in in.
func NewManager(in Input) *Manager {
	m := &Manager{
		paid:              map[int64]bool{},
		sessionLocked:     map[int]bool{},
		removedIDs:        map[int64]struct{}{},
		removedVoucherIDs: map[int64]struct{}{},
		branchServices:    in.BranchServices,
		branchID:          in.BranchID,
		defaultStart:      in.DefaultStart,
		defaultEnd:        in.DefaultEnd,
	}

	for _, inv := range in.Invoices {
		if inv.ServiceBookingID != nil && inv.Status == invoices.StatusPaid {
			m.paid[*inv.ServiceBookingID] = true
		}
	}

	vouchers := append([]ServiceBooking(nil), in.Vouchers...)
	sort.Slice(vouchers, func(i, j int) bool { return vouchers[i].ID < vouchers[j].ID })
	for _, v := range vouchers {
		if v.Status == StatusCancelled {
			continue
		}
		rows := append([]ServiceBookingItem(nil), v.Items...)
		sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
		for _, row := range rows {
			m.items = append(m.items, ItemFromRow(row))
		}
	}
	return m
}

// IsVoucherPaid is true when a PAID invoice references the stored voucher.
// Session vouchers are never paid.
func (m *Manager) IsVoucherPaid(id VoucherID) bool {
	stored, ok := id.PersistedID()
	if !ok {
		return false
	}
	return m.paid[stored]
}

// IsVoucherLocked is true for paid vouchers and for every voucher committed
// in this session.
func (m *Manager) IsVoucherLocked(id VoucherID) bool {
	if m.IsVoucherPaid(id) {
		return true
	}
	if index, ok := id.PendingIndex(); ok {
		return m.sessionLocked[index]
	}
	return false
}

// AddItemToPendingVoucher drafts one unit of a branch service into the
// uncommitted voucher, using the session's default window.
func (m *Manager) AddItemToPendingVoucher(branchServiceID int64) error {
	if m.branchServices != nil {
		bs, ok := m.branchServices[branchServiceID]
		if !ok {
			return apperror.Newf(apperror.ErrReferenceNotFound, "branch service %d not found", branchServiceID)
		}
		if m.branchID != 0 && bs.BranchID != m.branchID {
			return apperror.Newf(apperror.ErrReferenceNotFound,
				"branch service %d is not offered at branch %d", branchServiceID, m.branchID)
		}
	}
	for _, it := range m.pending {
		if it.BranchServiceID == branchServiceID {
			return apperror.Newf(apperror.ErrInvalidState,
				"branch service %d is already in the voucher being drafted", branchServiceID)
		}
	}

	m.pending = append(m.pending, Item{
		BranchServiceID: branchServiceID,
		Quantity:        1,
		StartTime:       m.defaultStart,
		EndTime:         m.defaultEnd,
	})
	m.emit()
	return nil
}

// PendingItems returns the uncommitted draft.
func (m *Manager) PendingItems() []Item {
	return cloneItems(m.pending)
}

// RemovePendingItem drops a line from the draft.
func (m *Manager) RemovePendingItem(index int) error {
	if err := checkIndex(index, len(m.pending), "draft item"); err != nil {
		return err
	}
	m.pending = append(m.pending[:index], m.pending[index+1:]...)
	m.emit()
	return nil
}

// SetPendingQuantity changes a draft line's quantity.
func (m *Manager) SetPendingQuantity(index, quantity int) error {
	if err := checkIndex(index, len(m.pending), "draft item"); err != nil {
		return err
	}
	if err := checkQuantity(quantity); err != nil {
		return err
	}
	m.pending[index].Quantity = quantity
	m.emit()
	return nil
}

// SetPendingWindow sets the billed window of a draft line.
func (m *Manager) SetPendingWindow(index int, start, end time.Time) error {
	if err := checkIndex(index, len(m.pending), "draft item"); err != nil {
		return err
	}
	if err := checkWindow(start, end); err != nil {
		return err
	}
	m.pending[index].StartTime = start
	m.pending[index].EndTime = end
	m.emit()
	return nil
}

// SetPendingTrainers assigns trainers to a draft line.
func (m *Manager) SetPendingTrainers(index int, trainerIDs []int64) error {
	if err := checkIndex(index, len(m.pending), "draft item"); err != nil {
		return err
	}
	m.pending[index].TrainerIDs = append([]int64(nil), trainerIDs...)
	m.emit()
	return nil
}

// CommitPendingVoucher moves the draft into the working set under a new
// session voucher, which is locked from then on. It returns false and does
// nothing when the draft is empty.
func (m *Manager) CommitPendingVoucher() (VoucherID, bool) {
	if len(m.pending) == 0 {
		return VoucherID{}, false
	}

	m.nextPending++
	id := Pending(m.nextPending)
	for _, it := range m.pending {
		it.Voucher = id
		m.items = append(m.items, it)
	}
	m.sessionLocked[m.nextPending] = true
	m.pending = nil
	m.emit()
	return id, true
}

// RemoveItem deletes one active item. Stored items are recorded in
// RemovedIDs. A locked voucher rejects the call and nothing changes.
func (m *Manager) RemoveItem(index int) error {
	if err := checkIndex(index, len(m.items), "item"); err != nil {
		return err
	}
	item := m.items[index]
	if err := m.ensureUnlocked(item.Voucher); err != nil {
		return err
	}

	m.items = append(m.items[:index], m.items[index+1:]...)
	if item.IsPersisted() {
		m.removedIDs[item.ID] = struct{}{}
	}
	m.emit()
	return nil
}

// RemoveVoucher deletes every item of an unlocked voucher.
func (m *Manager) RemoveVoucher(id VoucherID) error {
	if err := m.ensureUnlocked(id); err != nil {
		return err
	}

	kept := m.items[:0:0]
	found := false
	for _, it := range m.items {
		if it.Voucher != id {
			kept = append(kept, it)
			continue
		}
		found = true
		if it.IsPersisted() {
			m.removedIDs[it.ID] = struct{}{}
		}
	}
	if !found {
		return apperror.Newf(apperror.ErrReferenceNotFound, "voucher %s not found", id)
	}

	m.items = kept
	if stored, ok := id.PersistedID(); ok {
		m.removedVoucherIDs[stored] = struct{}{}
	}
	m.emit()
	return nil
}

// SetQuantity changes the quantity of an item in an unlocked voucher.
func (m *Manager) SetQuantity(index, quantity int) error {
	if err := checkIndex(index, len(m.items), "item"); err != nil {
		return err
	}
	if err := m.ensureUnlocked(m.items[index].Voucher); err != nil {
		return err
	}
	if err := checkQuantity(quantity); err != nil {
		return err
	}
	m.items[index].Quantity = quantity
	m.emit()
	return nil
}

// SetItemWindow changes the billed window of an item in an unlocked voucher.
func (m *Manager) SetItemWindow(index int, start, end time.Time) error {
	if err := checkIndex(index, len(m.items), "item"); err != nil {
		return err
	}
	if err := m.ensureUnlocked(m.items[index].Voucher); err != nil {
		return err
	}
	if err := checkWindow(start, end); err != nil {
		return err
	}
	m.items[index].StartTime = start
	m.items[index].EndTime = end
	m.emit()
	return nil
}

// SetBranchServices replaces the services new items may be drafted from,
// e.g. after the booking moves to a court in another branch. Items already
// in the working set are kept.
func (m *Manager) SetBranchServices(branchServices map[int64]catalog.BranchService, branchID int64) {
	m.branchServices = branchServices
	m.branchID = branchID
}

// SetDefaultWindow changes the window used for items drafted from now on.
func (m *Manager) SetDefaultWindow(start, end time.Time) {
	m.defaultStart = start
	m.defaultEnd = end
}

// ActiveItems returns the working set without items of removed vouchers.
func (m *Manager) ActiveItems() []Item {
	out := make([]Item, 0, len(m.items))
	for _, it := range m.items {
		if stored, ok := it.Voucher.PersistedID(); ok {
			if _, removed := m.removedVoucherIDs[stored]; removed {
				continue
			}
		}
		out = append(out, cloneItem(it))
	}
	return out
}

// RemovedIDs lists stored item ids to delete, ascending.
func (m *Manager) RemovedIDs() []int64 {
	return sortedKeys(m.removedIDs)
}

// RemovedVoucherIDs lists stored vouchers removed as a whole, ascending.
func (m *Manager) RemovedVoucherIDs() []int64 {
	return sortedKeys(m.removedVoucherIDs)
}

// Snapshot is the current state as reported to OnChange.
func (m *Manager) Snapshot() Snapshot {
	return Snapshot{
		Active:            m.ActiveItems(),
		RemovedIDs:        m.RemovedIDs(),
		RemovedVoucherIDs: m.RemovedVoucherIDs(),
	}
}

// Groups returns active items grouped by voucher: stored vouchers by id, then
// session vouchers in commit order.
func (m *Manager) Groups() []Group {
	index := map[VoucherID]int{}
	var groups []Group
	for _, it := range m.ActiveItems() {
		i, ok := index[it.Voucher]
		if !ok {
			i = len(groups)
			index[it.Voucher] = i
			groups = append(groups, Group{
				Voucher: it.Voucher,
				Paid:    m.IsVoucherPaid(it.Voucher),
				Locked:  m.IsVoucherLocked(it.Voucher),
			})
		}
		groups[i].Items = append(groups[i].Items, it)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Voucher.less(groups[j].Voucher)
	})
	return groups
}

// Update builds the write instruction for the current state.
func (m *Manager) Update() ServicesUpdate {
	return ServicesUpdate{
		Items:             m.ActiveItems(),
		RemovedItemIDs:    m.RemovedIDs(),
		RemovedVoucherIDs: m.RemovedVoucherIDs(),
	}
}

func (m *Manager) ensureUnlocked(id VoucherID) error {
	if m.IsVoucherPaid(id) {
		return apperror.Newf(apperror.ErrVoucherLocked, "voucher %s has a paid invoice and cannot be modified", id)
	}
	if m.IsVoucherLocked(id) {
		return apperror.Newf(apperror.ErrVoucherLocked, "voucher %s was committed in this session and is locked", id)
	}
	return nil
}

func (m *Manager) emit() {
	if m.OnChange != nil {
		m.OnChange(m.Snapshot())
	}
}

func checkIndex(index, length int, what string) error {
	if index < 0 || index >= length {
		return apperror.Newf(apperror.ErrReferenceNotFound, "%s %d out of range (have %d)", what, index, length)
	}
	return nil
}

func checkQuantity(quantity int) error {
	if quantity < 1 {
		return apperror.Newf(apperror.ErrInsufficientSelection, "quantity must be at least 1, got %d", quantity)
	}
	return nil
}

func checkWindow(start, end time.Time) error {
	if !end.After(start) {
		return apperror.Newf(apperror.ErrInvalidTimeRange, "service window end must be after start")
	}
	return nil
}

func cloneItem(it Item) Item {
	it.TrainerIDs = append([]int64(nil), it.TrainerIDs...)
	return it
}

func cloneItems(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		out = append(out, cloneItem(it))
	}
	return out
}

func sortedKeys(set map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
