package bookings

import "time"

type SlotResponse struct {
	ID        int64      `json:"id"`
	StartTime time.Time  `json:"start_time"`
	EndTime   time.Time  `json:"end_time"`
	Hours     float64    `json:"hours"`
	Status    SlotStatus `json:"status"`
}

type BookingResponse struct {
	ID          int64          `json:"id"`
	CourtID     int64          `json:"court_id"`
	CustomerID  int64          `json:"customer_id"`
	Status      Status         `json:"status"`
	Version     int64          `json:"version"`
	Slots       []SlotResponse `json:"slots"`
	CreatedAt   time.Time      `json:"created_at"`
	CancelledAt *time.Time     `json:"cancelled_at,omitempty"`
	CancelledBy string         `json:"cancelled_by,omitempty"`
}

// ToResponse renders a booking, marking slots that already ended as past.
func ToResponse(b *CourtBooking, now time.Time) BookingResponse {
	slots := make([]SlotResponse, 0, len(b.Slots))
	for _, s := range b.Slots {
		status := s.Status
		if s.EndTime.Before(now) {
			status = SlotPast
		}
		slots = append(slots, SlotResponse{
			ID:        s.ID,
			StartTime: s.StartTime,
			EndTime:   s.EndTime,
			Hours:     s.EndTime.Sub(s.StartTime).Hours(),
			Status:    status,
		})
	}
	return BookingResponse{
		ID:          b.ID,
		CourtID:     b.CourtID,
		CustomerID:  b.CustomerID,
		Status:      b.Status,
		Version:     b.Version,
		Slots:       slots,
		CreatedAt:   b.CreatedAt,
		CancelledAt: b.CancelledAt,
		CancelledBy: b.CancelledBy,
	}
}
