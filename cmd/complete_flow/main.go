package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/livefire2015/ez-rent/src/config"
	"github.com/livefire2015/ez-rent/src/database"
	"github.com/livefire2015/ez-rent/src/models"
	"github.com/livefire2015/ez-rent/src/services"
	"github.com/shopspring/decimal"
)

// This example walks one tenant through two billing periods:
// 1. Create a room and move a tenant in
// 2. Record meter readings for February (baseline) and March
// 3. Generate the March bill
// 4. Record a partial payment
// 5. Generate April and show the balance carried forward

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db, database.Up); err != nil {
		log.Fatal(err)
	}

	// Initialize services
	rooms := services.NewRoomService(db)
	tenants := services.NewTenantService(db)
	settings := services.NewSettingsService(db)
	readings := services.NewMeterReadingService(db, settings)
	payments := services.NewPaymentService(db)
	billingService := services.NewBillingService(db, nil, nil)

	fmt.Println("=== EZ Rent - Complete Flow Example ===")
	fmt.Println()

	// Step 1: Room and tenant
	fmt.Println("Step 1: Creating Room and Tenant")
	fmt.Println("--------------------------------")

	suffix := uuid.New().String()[:6]
	room := &models.Room{
		RoomNumber:    "R-" + suffix,
		Floor:         2,
		MonthlyRent:   decimal.NewFromInt(1200),
		ElectricMeter: "EM-" + suffix,
	}
	if err := rooms.CreateRoom(ctx, room); err != nil {
		log.Fatal(err)
	}

	tenant := &models.Tenant{
		Name:            "Example Tenant",
		Email:           fmt.Sprintf("tenant-%s@example.com", suffix),
		SecurityDeposit: decimal.NewFromInt(2400),
		RoomID:          &room.ID,
		MoveInDate:      time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := tenants.CreateTenant(ctx, tenant); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("  ✓ Room %s at %s/month, tenant %s moved in %s\n\n",
		room.RoomNumber, room.MonthlyRent.StringFixed(2), tenant.Name, tenant.MoveInDate.Format(time.DateOnly))

	// Step 2: Meter readings
	fmt.Println("Step 2: Recording Meter Readings")
	fmt.Println("--------------------------------")

	february := models.Period{Month: 2, Year: 2024}
	march := february.Next()
	april := march.Next()

	for _, r := range []struct {
		period models.Period
		value  int64
	}{
		{february, 1000},
		{march, 1120},
		{april, 1180},
	} {
		reading, err := readings.RecordReading(ctx, services.RecordReadingRequest{
			RoomID:       room.ID,
			Period:       r.period,
			ReadingValue: decimal.NewFromInt(r.value),
		})
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("  ✓ %s: meter %s → %s units\n", r.period, reading.ReadingValue, reading.UnitsConsumed)
	}
	fmt.Println()

	// Step 3: March bill
	fmt.Println("Step 3: Generating March Bill")
	fmt.Println("-----------------------------")

	marchBill := generate(ctx, billingService, tenant.ID, march)
	printBill(marchBill)

	// Step 4: Partial payment
	fmt.Println("Step 4: Recording Payment")
	fmt.Println("-------------------------")

	result, err := payments.RecordPayment(ctx, &models.Payment{
		TenantID: tenant.ID,
		Period:   march,
		Amount:   decimal.NewFromInt(1000),
		Method:   models.PaymentMethodBankTransfer,
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("  ✓ Payment: %s → March carry forward %s (%s)\n\n",
		result.Payment.Amount.StringFixed(2), result.Bill.CarryForward.StringFixed(2), result.Bill.Status)

	// Step 5: April bill picks up the unpaid balance
	fmt.Println("Step 5: Generating April Bill")
	fmt.Println("=============================")

	aprilBill := generate(ctx, billingService, tenant.ID, april)
	printBill(aprilBill)

	fmt.Println("Summary:")
	fmt.Printf("  • March total due %s, paid %s\n", marchBill.TotalDue.StringFixed(2), result.Bill.AmountPaid.StringFixed(2))
	fmt.Printf("  • April balance forward %s\n", aprilBill.BalanceForward.StringFixed(2))
	fmt.Printf("  • April total due %s\n\n", aprilBill.TotalDue.StringFixed(2))

	fmt.Println("=== Example Complete ===")
}

func generate(ctx context.Context, svc *services.BillingService, tenantID uuid.UUID, period models.Period) *models.Bill {
	result, err := svc.GenerateBills(ctx, services.GenerateRequest{Period: period, TenantID: &tenantID})
	if err != nil {
		log.Fatal(err)
	}
	res := result.Results[0]
	if !res.OK() {
		log.Fatalf("bill for %s failed (%s): %v", period, res.Kind, res.Err)
	}
	return res.Bill
}

func printBill(b *models.Bill) {
	fmt.Printf("  Period:          %s (due %s)\n", b.Period, b.DueDate.Format(time.DateOnly))
	fmt.Printf("  Rent:            %s\n", b.RentCharge.StringFixed(2))
	fmt.Printf("  Electricity:     %s (%s units × %s)\n", b.ElectricityCharge.StringFixed(2), b.UnitsConsumed, b.UnitRate.StringFixed(2))
	fmt.Printf("  Misc:            %s\n", b.MiscCharge.StringFixed(2))
	fmt.Printf("  Balance forward: %s\n", b.BalanceForward.StringFixed(2))
	fmt.Printf("  Total due:       %s\n", b.TotalDue.StringFixed(2))
	fmt.Printf("  Paid:            %s\n", b.AmountPaid.StringFixed(2))
	fmt.Printf("  Carry forward:   %s (%s)\n\n", b.CarryForward.StringFixed(2), b.Status)
}
