package database

import (
	"gorm.io/gorm"
)

// constraintStatements back the engine's invariants at the database level.
// Every statement is idempotent.
var constraintStatements = []string{
	// Refunds can never exceed what was charged
	`DO $$ BEGIN
		ALTER TABLE invoices ADD CONSTRAINT chk_invoice_refund_within_total
		CHECK (refund_amount >= 0 AND refund_amount <= total_amount);
	EXCEPTION WHEN duplicate_object THEN NULL; END $$;`,

	`DO $$ BEGIN
		ALTER TABLE invoices ADD CONSTRAINT chk_invoice_total_non_negative
		CHECK (total_amount >= 0);
	EXCEPTION WHEN duplicate_object THEN NULL; END $$;`,

	`DO $$ BEGIN
		ALTER TABLE booking_slots ADD CONSTRAINT chk_slot_window
		CHECK (end_time > start_time);
	EXCEPTION WHEN duplicate_object THEN NULL; END $$;`,

	// Overlap lookups under FOR UPDATE
	`CREATE INDEX IF NOT EXISTS idx_booking_slots_court_window
		ON booking_slots (court_id, start_time, end_time);`,

	// Lock checks by voucher
	`CREATE INDEX IF NOT EXISTS idx_invoices_service_booking_status
		ON invoices (service_booking_id, status);`,

	`CREATE INDEX IF NOT EXISTS idx_refund_entries_invoice
		ON refund_entries (invoice_id, created_at);`,
}

// MigrateConstraints adds check constraints and indexes AutoMigrate cannot express.
func MigrateConstraints(db *gorm.DB) error {
	for _, stmt := range constraintStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
