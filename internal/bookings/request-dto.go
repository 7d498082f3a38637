package bookings

type CreateBookingRequest struct {
	CourtID    int64        `json:"court_id" binding:"required,gt=0"`
	CustomerID int64        `json:"customer_id" binding:"required,gt=0"`
	Slots      []SlotWindow `json:"slots" binding:"required,min=1,dive"`
}
