// Package billing derives monthly rental bills from rent, metered electricity,
// ad-hoc charges and the balance carried over from the previous period.
//
// The computations here are pure: every input, including the settings
// snapshot and the generation timestamp, is passed in by the caller, and
// nothing is persisted.
package billing

import (
	"fmt"
	"time"

	"github.com/livefire2015/ez-rent/src/models"
	"github.com/shopspring/decimal"
)

// CurrencyPlaces is the rounding precision for money
const CurrencyPlaces = 2

// BillInput carries everything needed to compute one tenant's bill
type BillInput struct {
	Tenant          models.Tenant
	Room            models.Room
	Period          models.Period
	PriorBalance    decimal.Decimal      // Carry forward of the preceding period, zero if none
	Reading         *models.MeterReading // Reading for Period
	PreviousReading *models.MeterReading // Immediately preceding reading for the room, nil for the first
	Charges         []models.Charge
	Payments        []models.Payment
	GeneratedAt     time.Time
}

// ComputeUnitsConsumed returns current - previous, clamped at zero so a meter
// rollover or a reversed entry never produces negative consumption.
func ComputeUnitsConsumed(previous, current decimal.Decimal) decimal.Decimal {
	units := current.Sub(previous)
	if units.IsNegative() {
		return decimal.Zero
	}
	return units
}

// ComputeElectricityCharge returns units x rate rounded half-up to currency precision
func ComputeElectricityCharge(units, rate decimal.Decimal) decimal.Decimal {
	return units.Mul(rate).Round(CurrencyPlaces)
}

// DueDate returns the date payment is due for a period
func DueDate(period models.Period, dueDays int) time.Time {
	return period.Start().AddDate(0, 0, dueDays)
}

// ComputeLateFee returns percentage percent of an overdue balance, rounded to
// currency precision. Credits and settled balances attract no fee.
func ComputeLateFee(carryForward, percentage decimal.Decimal) decimal.Decimal {
	if !carryForward.IsPositive() || !percentage.IsPositive() {
		return decimal.Zero
	}
	return carryForward.Mul(percentage).Div(decimal.NewFromInt(100)).Round(CurrencyPlaces)
}

// ComputeBill builds the bill for one tenant and period. Calling it twice with
// the same input and settings yields identical bills.
func ComputeBill(in BillInput, settings models.Settings) (*models.Bill, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	rate, err := settings.ElectricUnitCost()
	if err != nil {
		return nil, fmt.Errorf("failed to read unit rate: %w", err)
	}
	dueDays, err := settings.BillDueDays()
	if err != nil {
		return nil, fmt.Errorf("failed to read due days: %w", err)
	}

	// First reading for a room has no baseline, so consumption is zero
	previous := in.Reading.ReadingValue
	if in.PreviousReading != nil {
		previous = in.PreviousReading.ReadingValue
	}
	units := ComputeUnitsConsumed(previous, in.Reading.ReadingValue)

	readingID := in.Reading.ID
	bill := &models.Bill{
		TenantID:          in.Tenant.ID,
		RoomID:            in.Room.ID,
		MeterReadingID:    &readingID,
		Period:            in.Period,
		PreviousReading:   previous,
		CurrentReading:    in.Reading.ReadingValue,
		UnitsConsumed:     units,
		UnitRate:          rate,
		RentCharge:        in.Room.MonthlyRent,
		ElectricityCharge: ComputeElectricityCharge(units, rate),
		MiscCharge:        models.SumBillableCharges(in.Charges),
		BalanceForward:    in.PriorBalance,
		AmountPaid:        models.SumPayments(in.Payments),
		DueDate:           DueDate(in.Period, dueDays),
		GeneratedAt:       in.GeneratedAt,
		UpdatedAt:         in.GeneratedAt,
	}
	bill.TotalDue = bill.CalculateTotalDue()
	bill.CarryForward = bill.CalculateCarryForward()
	bill.Status = bill.DeriveStatus()

	return bill, nil
}

func validateInput(in BillInput) error {
	if err := in.Period.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if in.Tenant.RoomID == nil || *in.Tenant.RoomID != in.Room.ID {
		return fmt.Errorf("%w: tenant %s is not assigned to room %s", ErrInvalidInput, in.Tenant.ID, in.Room.RoomNumber)
	}
	if !in.Tenant.OccupiesDuring(in.Period) {
		return fmt.Errorf("%w: tenant %s does not occupy a room in %s", ErrInvalidInput, in.Tenant.ID, in.Period)
	}
	if in.Reading == nil {
		return fmt.Errorf("%w: no meter reading for room %s in %s", ErrIncompleteData, in.Room.RoomNumber, in.Period)
	}
	if in.Reading.RoomID != in.Room.ID || in.Reading.Period != in.Period {
		return fmt.Errorf("%w: meter reading %s does not belong to room %s in %s",
			ErrInvalidInput, in.Reading.ID, in.Room.RoomNumber, in.Period)
	}
	if in.Reading.ReadingValue.IsNegative() {
		return fmt.Errorf("%w: %v", ErrInvalidInput, models.ErrNegativeReading)
	}
	for _, c := range in.Charges {
		if c.TenantID != in.Tenant.ID || c.Period != in.Period {
			return fmt.Errorf("%w: charge %s belongs to another tenant or period", ErrInvalidInput, c.ID)
		}
	}
	for _, p := range in.Payments {
		if p.TenantID != in.Tenant.ID || p.Period != in.Period {
			return fmt.Errorf("%w: payment %s belongs to another tenant or period", ErrInvalidInput, p.ID)
		}
	}
	return nil
}
