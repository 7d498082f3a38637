package reconcile

import (
	"courtly/internal/bookings"
	"courtly/internal/pricing"
	"courtly/internal/vouchers"
)

// Quote is the priced stored state of a booking.
type Quote struct {
	BookingID   int64               `json:"booking_id"`
	Version     int64               `json:"version"`
	Status      bookings.Status     `json:"status"`
	Calculation pricing.Calculation `json:"calculation"`
}

// EditResult reports an edit preview or save.
type EditResult struct {
	BookingID        int64               `json:"booking_id"`
	Version          int64               `json:"version"`
	Original         pricing.Calculation `json:"original"`
	Current          pricing.Calculation `json:"current"`
	HasChanges       bool                `json:"has_changes"`
	CourtTimeChanged bool                `json:"court_time_changed"`
	ServicesChanged  bool                `json:"services_changed"`
	// ItemsEdited is set when stored items were edited in ways the
	// services_changed comparison ignores. Such edits are still saved.
	ItemsEdited      bool                `json:"items_edited"`
	Instructions     Instructions        `json:"instructions"`
	Groups           []vouchers.Group    `json:"groups"`
	// CreatedVouchers maps session voucher ids to the ids they were saved as.
	CreatedVouchers map[string]int64 `json:"created_vouchers,omitempty"`
	Saved           bool             `json:"saved"`
}

// ServicesView is a booking's services grouped by voucher.
type ServicesView struct {
	BookingID int64            `json:"booking_id"`
	Groups    []vouchers.Group `json:"groups"`
}

func newEditResult(s *Session, current pricing.Calculation) *EditResult {
	return &EditResult{
		BookingID:        s.Booking().ID,
		Version:          s.Booking().Version,
		Original:         s.Original(),
		Current:          current,
		HasChanges:       s.HasChanges(),
		CourtTimeChanged: s.CourtTimeChanged(),
		ServicesChanged:  s.ServicesChanged(),
		ItemsEdited:      s.ItemsEdited(),
		Instructions:     s.Instructions(),
		Groups:           s.Vouchers().Groups(),
	}
}
