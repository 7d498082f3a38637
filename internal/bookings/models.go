package bookings

import (
	"time"
)

// Status represents the lifecycle state of a court booking
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
)

// IsValid checks if the status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPaid, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanBeCancelled reports whether a booking in this status may still be cancelled.
func (s Status) CanBeCancelled() bool {
	return s != StatusPaid && s != StatusCancelled
}

// IsActive reports whether the booking still holds its slots.
func (s Status) IsActive() bool {
	return s != StatusCancelled
}

// SlotStatus is the display state of a booked time slot.
type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotBooked    SlotStatus = "booked"
	SlotPending   SlotStatus = "pending"
	SlotPast      SlotStatus = "past"
)

// CourtBooking is one reservation of a court for one or more slots on a single date.
type CourtBooking struct {
	ID          int64         `gorm:"primaryKey" json:"id"`
	CourtID     int64         `gorm:"index;not null" json:"court_id"`
	CustomerID  int64         `gorm:"index;not null" json:"customer_id"`
	Status      Status        `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	Version     int64         `gorm:"not null;default:1" json:"version"`
	Slots       []BookingSlot `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE" json:"slots"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	CancelledAt *time.Time    `json:"cancelled_at,omitempty"`
	CancelledBy string        `gorm:"type:varchar(255)" json:"cancelled_by,omitempty"`
}

// BookingSlot is a contiguous window owned by exactly one booking.
type BookingSlot struct {
	ID        int64      `gorm:"primaryKey" json:"id"`
	BookingID int64      `gorm:"index;not null" json:"booking_id"`
	CourtID   int64      `gorm:"index:idx_slot_court_window;not null" json:"court_id"`
	StartTime time.Time  `gorm:"index:idx_slot_court_window;not null" json:"start_time"`
	EndTime   time.Time  `gorm:"not null" json:"end_time"`
	Status    SlotStatus `gorm:"type:varchar(20);not null;default:'booked'" json:"status"`
}

func (CourtBooking) TableName() string {
	return "court_bookings"
}

func (BookingSlot) TableName() string {
	return "booking_slots"
}

// Windows returns the start/end pairs of the booking's slots.
func (b *CourtBooking) Windows() []SlotWindow {
	out := make([]SlotWindow, 0, len(b.Slots))
	for _, s := range b.Slots {
		out = append(out, SlotWindow{StartTime: s.StartTime, EndTime: s.EndTime})
	}
	return out
}

// FirstStart is the earliest slot start, or the zero time for an empty booking.
func (b *CourtBooking) FirstStart() time.Time {
	var first time.Time
	for i, s := range b.Slots {
		if i == 0 || s.StartTime.Before(first) {
			first = s.StartTime
		}
	}
	return first
}
