package database

import (
	"courtly/internal/bookings"
	"courtly/internal/catalog"
	"courtly/internal/invoices"
	"courtly/internal/vouchers"

	"gorm.io/gorm"
)

type table struct {
	name  string
	model interface{}
}

// tables lists the courtly schema, parents first.
var tables = []table{
	{"courts", &catalog.Court{}},
	{"services", &catalog.Service{}},
	{"branch_services", &catalog.BranchService{}},
	{"court_bookings", &bookings.CourtBooking{}},
	{"booking_slots", &bookings.BookingSlot{}},
	{"service_bookings", &vouchers.ServiceBooking{}},
	{"service_booking_items", &vouchers.ServiceBookingItem{}},
	{"invoices", &invoices.Invoice{}},
	{"refund_entries", &invoices.RefundEntry{}},
}

func Migrate(db *gorm.DB) error {
	models := make([]interface{}, 0, len(tables))
	for _, t := range tables {
		models = append(models, t.model)
	}
	if err := db.AutoMigrate(models...); err != nil {
		return err
	}
	return MigrateConstraints(db)
}
