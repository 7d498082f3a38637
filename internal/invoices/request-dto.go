package invoices

type CreateInvoiceRequest struct {
	TotalAmount      int64  `json:"total_amount" binding:"gte=0"`
	PaymentMethod    string `json:"payment_method" binding:"required,oneof=counter online bank_transfer"`
	Status           Status `json:"status" binding:"omitempty,oneof=UNPAID PENDING PAID"`
	CourtBookingID   *int64 `json:"court_booking_id" binding:"omitempty,gt=0"`
	ServiceBookingID *int64 `json:"service_booking_id" binding:"omitempty,gt=0"`
	Notes            string `json:"notes" binding:"max=2000"`
}

type CancelInvoiceRequest struct {
	Reason string `json:"reason" binding:"required,min=3,max=500"`
}

type RefundRequest struct {
	Amount int64  `json:"amount" binding:"required,gt=0"`
	Reason string `json:"reason" binding:"required,min=3,max=500"`
}
