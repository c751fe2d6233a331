package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/livefire2015/ez-rent/src/config"
	"github.com/livefire2015/ez-rent/src/database"
	"github.com/livefire2015/ez-rent/src/logging"
	"github.com/livefire2015/ez-rent/src/models"
	"github.com/livefire2015/ez-rent/src/services"
	"github.com/shopspring/decimal"
)

// This example bills an unpaid tenant, assesses a late fee once the bill is
// overdue and shows the fee landing on the next period's bill. Running the
// assessment twice charges the fee only once.

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New("warn", "console")
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db, database.Up); err != nil {
		log.Fatal(err)
	}

	rooms := services.NewRoomService(db)
	tenants := services.NewTenantService(db)
	settings := services.NewSettingsService(db)
	readings := services.NewMeterReadingService(db, settings)
	billingService := services.NewBillingService(db, nil, logger)
	fees := services.NewFeeService(db, billingService, nil, logger)

	suffix := uuid.New().String()[:6]
	room := &models.Room{RoomNumber: "LF-" + suffix, MonthlyRent: decimal.NewFromInt(900), ElectricMeter: "EM-" + suffix}
	if err := rooms.CreateRoom(ctx, room); err != nil {
		log.Fatal(err)
	}
	tenant := &models.Tenant{
		Name:       "Late Payer",
		Email:      fmt.Sprintf("late-%s@example.com", suffix),
		RoomID:     &room.ID,
		MoveInDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := tenants.CreateTenant(ctx, tenant); err != nil {
		log.Fatal(err)
	}

	may := models.Period{Month: 5, Year: 2024}
	june := may.Next()
	for i, p := range []models.Period{may, june} {
		if _, err := readings.RecordReading(ctx, services.RecordReadingRequest{
			RoomID:       room.ID,
			Period:       p,
			ReadingValue: decimal.NewFromInt(int64(500 + 40*i)),
		}); err != nil {
			log.Fatal(err)
		}
	}

	fmt.Println("=== EZ Rent - Late Fee Example ===")
	fmt.Println()

	result, err := billingService.GenerateBills(ctx, services.GenerateRequest{Period: may, TenantID: &tenant.ID})
	if err != nil {
		log.Fatal(err)
	}
	if len(result.Failures()) > 0 {
		log.Fatalf("May bill failed: %v", result.Failures()[0].Err)
	}
	mayBill := result.Bills()[0]
	fmt.Printf("May bill: %s due %s\n\n", mayBill.TotalDue.StringFixed(2), mayBill.DueDate.Format(time.DateOnly))

	asOf := mayBill.DueDate.AddDate(0, 0, 5)
	for attempt := 1; attempt <= 2; attempt++ {
		run, err := fees.AssessLateFees(ctx, may, asOf)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Assessment %d as of %s at %s%%: %d fee(s), total %s\n",
			attempt, asOf.Format(time.DateOnly), run.Percentage, len(run.Assessed), run.Total.StringFixed(2))
		for _, fee := range run.Assessed {
			fmt.Printf("  • %d days overdue on %s → %s charged to %s\n",
				fee.DaysOverdue, fee.Overdue.StringFixed(2), fee.Charge.Amount.StringFixed(2), fee.Charge.Period)
		}
	}
	fmt.Println()

	result, err = billingService.GenerateBills(ctx, services.GenerateRequest{Period: june, TenantID: &tenant.ID})
	if err != nil {
		log.Fatal(err)
	}
	if len(result.Failures()) > 0 {
		log.Fatalf("June bill failed: %v", result.Failures()[0].Err)
	}
	juneBill := result.Bills()[0]
	fmt.Printf("June bill:\n")
	fmt.Printf("  Rent:            %s\n", juneBill.RentCharge.StringFixed(2))
	fmt.Printf("  Electricity:     %s\n", juneBill.ElectricityCharge.StringFixed(2))
	fmt.Printf("  Misc (late fee): %s\n", juneBill.MiscCharge.StringFixed(2))
	fmt.Printf("  Balance forward: %s\n", juneBill.BalanceForward.StringFixed(2))
	fmt.Printf("  Total due:       %s\n\n", juneBill.TotalDue.StringFixed(2))

	fmt.Println("=== Example Complete ===")
}
