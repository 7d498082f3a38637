package pricing

import (
	"time"

	"courtly/internal/bookings"
	"courtly/internal/catalog"
	"courtly/internal/invoices"
	"courtly/internal/shared/apperror"
	"courtly/internal/vouchers"

	"github.com/shopspring/decimal"
)

var hour = decimal.NewFromInt(int64(time.Hour))

// Input is everything needed to price one booking state.
type Input struct {
	BookingID      int64
	Court          *catalog.Court
	Slots          []bookings.SlotWindow
	Items          []vouchers.Item
	BranchServices map[int64]catalog.BranchService
	Services       map[int64]catalog.Service

	// Invoices attach to the booking by court_booking_id == BookingID or by
	// service_booking_id in VoucherIDs.
	Invoices   []invoices.Invoice
	VoucherIDs []int64
}

// Calculation is the priced view of a booking.
type Calculation struct {
	CourtFee    int64 `json:"court_fee"`
	ServiceFee  int64 `json:"service_fee"`
	TotalAmount int64 `json:"total_amount"`
	AlreadyPaid int64 `json:"already_paid"`
	// Difference > 0 means the customer owes more, < 0 means a refund is owed.
	Difference int64 `json:"difference"`
}

// Settled reports a zero balance.
func (c Calculation) Settled() bool {
	return c.Difference == 0
}

// Calculate prices the court time and services and nets them against the
// invoices already collected.
func Calculate(in Input) (Calculation, error) {
	return calculate(in, AlreadyPaid(in.BookingID, in.VoucherIDs, in.Invoices))
}

// CalculateWithPaid prices in while holding the collected amount fixed.
func CalculateWithPaid(in Input, alreadyPaid int64) (Calculation, error) {
	return calculate(in, alreadyPaid)
}

func calculate(in Input, alreadyPaid int64) (Calculation, error) {
	courtFee, err := CourtFee(in.Court, in.Slots)
	if err != nil {
		return Calculation{}, err
	}
	serviceFee, err := ServiceFee(in.Items, in.BranchServices, in.Services)
	if err != nil {
		return Calculation{}, err
	}

	total := courtFee + serviceFee
	return Calculation{
		CourtFee:    courtFee,
		ServiceFee:  serviceFee,
		TotalAmount: total,
		AlreadyPaid: alreadyPaid,
		Difference:  total - alreadyPaid,
	}, nil
}

// CourtFee sums base_hourly_price × hours over the slots, rounding each slot.
func CourtFee(court *catalog.Court, slots []bookings.SlotWindow) (int64, error) {
	if len(slots) == 0 {
		return 0, nil
	}
	if court == nil {
		return 0, apperror.Newf(apperror.ErrReferenceNotFound, "court is required to price time slots")
	}

	var total int64
	for _, slot := range slots {
		if err := bookings.ValidateWindow(slot); err != nil {
			return 0, err
		}
		total += hourly(court.BaseHourlyPrice, 1, slot.EndTime.Sub(slot.StartTime))
	}
	return total, nil
}

// ServiceFee prices each item from its branch service. Hour-billed services
// use the item's own window.
func ServiceFee(items []vouchers.Item, branchServices map[int64]catalog.BranchService, services map[int64]catalog.Service) (int64, error) {
	var total int64
	for _, item := range items {
		fee, err := itemFee(item, branchServices, services)
		if err != nil {
			return 0, err
		}
		total += fee
	}
	return total, nil
}

func itemFee(item vouchers.Item, branchServices map[int64]catalog.BranchService, services map[int64]catalog.Service) (int64, error) {
	bs, ok := branchServices[item.BranchServiceID]
	if !ok {
		return 0, apperror.Newf(apperror.ErrReferenceNotFound, "branch service %d not found", item.BranchServiceID)
	}
	svc, ok := services[bs.ServiceID]
	if !ok {
		return 0, apperror.Newf(apperror.ErrReferenceNotFound,
			"service %d for branch service %d not found", bs.ServiceID, bs.ID)
	}
	if item.Quantity < 1 {
		return 0, apperror.Newf(apperror.ErrInsufficientSelection,
			"branch service %d: quantity must be at least 1, got %d", bs.ID, item.Quantity)
	}

	if !svc.IsHourly() {
		return bs.UnitPrice * int64(item.Quantity), nil
	}
	if !item.EndTime.After(item.StartTime) {
		return 0, apperror.Newf(apperror.ErrInvalidTimeRange,
			"branch service %d: end must be after start", bs.ID)
	}
	return hourly(bs.UnitPrice, item.Quantity, item.EndTime.Sub(item.StartTime)), nil
}

// hourly rounds price × quantity × d/1h half away from zero.
func hourly(price int64, quantity int, d time.Duration) int64 {
	return decimal.NewFromInt(price).
		Mul(decimal.NewFromInt(int64(quantity))).
		Mul(decimal.NewFromInt(int64(d))).
		Div(hour).
		Round(0).
		IntPart()
}

// AlreadyPaid sums the totals of collected invoices attached to the booking.
func AlreadyPaid(bookingID int64, voucherIDs []int64, list []invoices.Invoice) int64 {
	vouchersOf := make(map[int64]struct{}, len(voucherIDs))
	for _, id := range voucherIDs {
		vouchersOf[id] = struct{}{}
	}

	var paid int64
	for _, inv := range list {
		if !inv.Status.CountsAsCollected() {
			continue
		}
		if attached(inv, bookingID, vouchersOf) {
			paid += inv.TotalAmount
		}
	}
	return paid
}

func attached(inv invoices.Invoice, bookingID int64, vouchersOf map[int64]struct{}) bool {
	if inv.CourtBookingID != nil && *inv.CourtBookingID == bookingID {
		return true
	}
	if inv.ServiceBookingID != nil {
		_, ok := vouchersOf[*inv.ServiceBookingID]
		return ok
	}
	return false
}
