package vouchers

import (
	"time"
)

// Status of a stored voucher.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCancelled Status = "CANCELLED"
)

// ServiceBooking is a voucher: a batch of service items added together.
type ServiceBooking struct {
	ID             int64                `gorm:"primaryKey" json:"id"`
	CourtBookingID int64                `gorm:"index;not null" json:"court_booking_id"`
	Status         Status               `gorm:"type:varchar(20);not null;default:'ACTIVE'" json:"status"`
	Items          []ServiceBookingItem `gorm:"foreignKey:ServiceBookingID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// ServiceBookingItem is one service line. Hour-priced services are billed over
// the item's own window.
type ServiceBookingItem struct {
	ID               int64     `gorm:"primaryKey" json:"id"`
	ServiceBookingID int64     `gorm:"index;not null" json:"service_booking_id"`
	BranchServiceID  int64     `gorm:"index;not null" json:"branch_service_id"`
	Quantity         int       `gorm:"not null;default:1;check:quantity >= 1" json:"quantity"`
	StartTime        time.Time `gorm:"not null" json:"start_time"`
	EndTime          time.Time `gorm:"not null" json:"end_time"`
	TrainerIDs       []int64   `gorm:"serializer:json;type:jsonb" json:"trainer_ids,omitempty"`
}

func (ServiceBooking) TableName() string {
	return "service_bookings"
}

func (ServiceBookingItem) TableName() string {
	return "service_booking_items"
}

// Item is a service line in an edit session. ID is 0 until the item is saved.
type Item struct {
	ID              int64     `json:"id,omitempty"`
	Voucher         VoucherID `json:"voucher_id"`
	BranchServiceID int64     `json:"branch_service_id"`
	Quantity        int       `json:"quantity"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	TrainerIDs      []int64   `json:"trainer_ids,omitempty"`
}

// IsPersisted reports whether the item already has a database row.
func (i Item) IsPersisted() bool {
	return i.ID > 0
}

// ItemFromRow lifts a stored row into the session shape.
func ItemFromRow(row ServiceBookingItem) Item {
	return Item{
		ID:              row.ID,
		Voucher:         Persisted(row.ServiceBookingID),
		BranchServiceID: row.BranchServiceID,
		Quantity:        row.Quantity,
		StartTime:       row.StartTime,
		EndTime:         row.EndTime,
		TrainerIDs:      append([]int64(nil), row.TrainerIDs...),
	}
}

// Group is one voucher and its active items, as shown to staff.
type Group struct {
	Voucher VoucherID `json:"voucher_id"`
	Paid    bool      `json:"paid"`
	Locked  bool      `json:"locked"`
	Items   []Item    `json:"items"`
}

// Snapshot is what every manager mutation reports to its observer.
type Snapshot struct {
	Active            []Item  `json:"active"`
	RemovedIDs        []int64 `json:"removed_ids"`
	RemovedVoucherIDs []int64 `json:"removed_voucher_ids"`
}

// ServicesUpdate is the write instruction for a booking's services.
// Items with an ID update that row; items without one are created, one new
// voucher per distinct pending VoucherID.
type ServicesUpdate struct {
	Items             []Item  `json:"items"`
	RemovedItemIDs    []int64 `json:"removed_item_ids"`
	RemovedVoucherIDs []int64 `json:"removed_voucher_ids"`
}

// IsEmpty reports an update with nothing to write.
func (u ServicesUpdate) IsEmpty() bool {
	return len(u.Items) == 0 && len(u.RemovedItemIDs) == 0 && len(u.RemovedVoucherIDs) == 0
}
