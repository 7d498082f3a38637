package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"courtly/internal/bookings"
	"courtly/internal/catalog"
	"courtly/internal/invoices"
	"courtly/internal/shared/config"
	"courtly/internal/shared/database"
	"courtly/internal/vouchers"
	"courtly/pkg/cache"

	"gorm.io/gorm"
)

type Seeder struct {
	db *database.DB
}

func main() {
	fmt.Println("🌱 Starting Courtly Database Seeder...")

	cfg := config.Load()

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{db: db}

	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(cfg.Location()); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("✅ Database seeded successfully")

	fmt.Println("\n🎉 Seeding completed! Database is ready for testing.")
}

// CleanDatabase truncates all tables, children first.
func (s *Seeder) CleanDatabase() error {
	tables := []string{
		"refund_entries",
		"invoices",
		"service_booking_items",
		"service_bookings",
		"booking_slots",
		"court_bookings",
		"branch_services",
		"services",
		"courts",
	}

	return s.db.PostgreSQL.Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			fmt.Printf("  Truncating table: %s\n", table)
			if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
				return fmt.Errorf("failed to truncate table %s: %w", table, err)
			}
		}
		return nil
	})
}

// SeedAll seeds the catalog and one paid demo booking.
func (s *Seeder) SeedAll(loc *time.Location) error {
	ctx := context.Background()

	courts, err := s.SeedCourts()
	if err != nil {
		return fmt.Errorf("failed to seed courts: %w", err)
	}

	branchServices, err := s.SeedServices()
	if err != nil {
		return fmt.Errorf("failed to seed services: %w", err)
	}

	if err := s.SeedDemoBooking(courts[0], branchServices, loc); err != nil {
		return fmt.Errorf("failed to seed demo booking: %w", err)
	}

	// Drop cached prices so the API reads the fresh catalog
	if err := catalog.Invalidate(ctx, cache.NewService(s.db.Redis)); err != nil {
		log.Printf("Warning: Failed to clear catalog cache: %v", err)
	}

	return nil
}

func (s *Seeder) SeedCourts() ([]catalog.Court, error) {
	fmt.Println("  🏸 Seeding courts...")

	courts := []catalog.Court{
		{BranchID: 1, Name: "Court 1", BaseHourlyPrice: 100000, Status: "ACTIVE"},
		{BranchID: 1, Name: "Court 2", BaseHourlyPrice: 100000, Status: "ACTIVE"},
		{BranchID: 1, Name: "Center Court", BaseHourlyPrice: 150000, Status: "ACTIVE"},
		{BranchID: 2, Name: "Court A", BaseHourlyPrice: 80000, Status: "ACTIVE"},
	}
	if err := s.db.PostgreSQL.Create(&courts).Error; err != nil {
		return nil, err
	}

	fmt.Printf("  ✅ Created %d courts\n", len(courts))
	return courts, nil
}

// SeedServices creates the service definitions and prices them in both branches.
func (s *Seeder) SeedServices() ([]catalog.BranchService, error) {
	fmt.Println("  🎾 Seeding services...")

	services := []catalog.Service{
		{Name: "Racket rental", Unit: catalog.UnitItem},
		{Name: "Shuttlecock tube", Unit: catalog.UnitItem},
		{Name: "Towel", Unit: catalog.UnitItem},
		{Name: "Trainer", Unit: catalog.UnitHour},
	}
	if err := s.db.PostgreSQL.Create(&services).Error; err != nil {
		return nil, err
	}

	prices := map[string]int64{
		"Racket rental":    20000,
		"Shuttlecock tube": 50000,
		"Towel":            5000,
		"Trainer":          150000,
	}

	var branchServices []catalog.BranchService
	for _, branchID := range []int64{1, 2} {
		for _, svc := range services {
			branchServices = append(branchServices, catalog.BranchService{
				BranchID:  branchID,
				ServiceID: svc.ID,
				UnitPrice: prices[svc.Name],
				Stock:     20,
				Status:    "ACTIVE",
			})
		}
	}
	if err := s.db.PostgreSQL.Create(&branchServices).Error; err != nil {
		return nil, err
	}

	fmt.Printf("  ✅ Created %d services and %d branch prices\n", len(services), len(branchServices))
	return branchServices, nil
}

// SeedDemoBooking books tomorrow 08:00-10:00 with a paid court invoice and a
// paid racket voucher, so edits against it hit the paid-voucher lock.
func (s *Seeder) SeedDemoBooking(court catalog.Court, branchServices []catalog.BranchService, loc *time.Location) error {
	fmt.Println("  📅 Seeding demo booking...")

	now := time.Now().In(loc)
	day := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, loc)
	start, end := day.Add(8*time.Hour), day.Add(10*time.Hour)

	return s.db.PostgreSQL.Transaction(func(tx *gorm.DB) error {
		booking := bookings.CourtBooking{
			CourtID:    court.ID,
			CustomerID: 1,
			Status:     bookings.StatusConfirmed,
			Version:    1,
			Slots: bookings.NewSlots(court.ID, []bookings.SlotWindow{
				{StartTime: start, EndTime: day.Add(9 * time.Hour)},
				{StartTime: day.Add(9 * time.Hour), EndTime: end},
			}),
		}
		if err := tx.Create(&booking).Error; err != nil {
			return err
		}

		voucher := vouchers.ServiceBooking{
			CourtBookingID: booking.ID,
			Status:         vouchers.StatusActive,
			Items: []vouchers.ServiceBookingItem{{
				BranchServiceID: branchServices[0].ID,
				Quantity:        1,
				StartTime:       start,
				EndTime:         end,
			}},
		}
		if err := tx.Create(&voucher).Error; err != nil {
			return err
		}

		paidAt := time.Now()
		invs := []invoices.Invoice{
			{
				TotalAmount:    court.BaseHourlyPrice * 2,
				PaymentMethod:  invoices.PaymentMethodCounter,
				Status:         invoices.StatusPaid,
				CourtBookingID: &booking.ID,
				PaidAt:         &paidAt,
			},
			{
				TotalAmount:      branchServices[0].UnitPrice,
				PaymentMethod:    invoices.PaymentMethodCounter,
				Status:           invoices.StatusPaid,
				ServiceBookingID: &voucher.ID,
				PaidAt:           &paidAt,
			},
		}
		if err := tx.Create(&invs).Error; err != nil {
			return err
		}

		fmt.Printf("  ✅ Created booking %d with voucher %d and %d invoices\n", booking.ID, voucher.ID, len(invs))
		return nil
	})
}
