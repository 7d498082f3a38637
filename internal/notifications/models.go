package notifications

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// EventType names a booking or invoice ledger event.
type EventType string

const (
	EventBookingCreated   EventType = "booking.created"
	EventBookingCancelled EventType = "booking.cancelled"
	EventBookingEdited    EventType = "booking.edited"
	EventInvoiceCreated   EventType = "invoice.created"
	EventInvoicePaid      EventType = "invoice.paid"
	EventInvoiceCancelled EventType = "invoice.cancelled"
	EventInvoiceRefunded  EventType = "invoice.refunded"
	EventInvoiceAdjusted  EventType = "invoice.adjusted"
)

// Event is one message on the ledger topic.
type Event struct {
	ID         uuid.UUID              `json:"id"`
	Type       EventType              `json:"type"`
	BookingID  int64                  `json:"booking_id,omitempty"`
	InvoiceID  int64                  `json:"invoice_id,omitempty"`
	Actor      string                 `json:"actor,omitempty"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// NewEvent stamps a fresh id and timestamp.
func NewEvent(eventType EventType, payload map[string]interface{}) *Event {
	return &Event{
		ID:         uuid.New(),
		Type:       eventType,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
}

// ForBooking sets the booking the event is about.
func (e *Event) ForBooking(bookingID int64) *Event {
	e.BookingID = bookingID
	return e
}

// ForInvoice sets the invoice the event is about.
func (e *Event) ForInvoice(invoiceID int64) *Event {
	e.InvoiceID = invoiceID
	return e
}

// By records who triggered the event.
func (e *Event) By(actor string) *Event {
	e.Actor = actor
	return e
}

func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// GetPartitionKey keeps every event of one booking on one partition, so
// consumers see a booking's history in order.
func (e *Event) GetPartitionKey() string {
	if e.BookingID != 0 {
		return "booking:" + strconv.FormatInt(e.BookingID, 10)
	}
	if e.InvoiceID != 0 {
		return "invoice:" + strconv.FormatInt(e.InvoiceID, 10)
	}
	return e.ID.String()
}
