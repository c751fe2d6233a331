package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillStatus represents the payment status of a bill
type BillStatus string

const (
	BillStatusUnpaid        BillStatus = "unpaid"         // Nothing paid yet
	BillStatusPartiallyPaid BillStatus = "partially_paid" // Some payment received
	BillStatusPaid          BillStatus = "paid"           // Total due settled exactly
	BillStatusOverpaid      BillStatus = "overpaid"       // Paid more than due, credit carried forward
)

// Bill is a tenant's statement for one billing period.
// TotalDue = RentCharge + ElectricityCharge + MiscCharge + BalanceForward
// CarryForward = TotalDue - AmountPaid, negative when the tenant holds a credit.
type Bill struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	TenantID       uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	RoomID         uuid.UUID  `json:"room_id" db:"room_id"`
	MeterReadingID *uuid.UUID `json:"meter_reading_id,omitempty" db:"meter_reading_id"`
	Period         Period     `json:"period"`

	// Electricity details
	PreviousReading decimal.Decimal `json:"previous_reading" db:"previous_reading"`
	CurrentReading  decimal.Decimal `json:"current_reading" db:"current_reading"`
	UnitsConsumed   decimal.Decimal `json:"units_consumed" db:"units_consumed"`
	UnitRate        decimal.Decimal `json:"unit_rate" db:"unit_rate"`

	// Charges
	RentCharge        decimal.Decimal `json:"rent_charge" db:"rent_charge"`
	ElectricityCharge decimal.Decimal `json:"electricity_charge" db:"electricity_charge"`
	MiscCharge        decimal.Decimal `json:"misc_charge" db:"misc_charge"`
	BalanceForward    decimal.Decimal `json:"balance_forward" db:"balance_forward"` // Carried from previous period

	// Totals
	TotalDue     decimal.Decimal `json:"total_due" db:"total_due"`
	AmountPaid   decimal.Decimal `json:"amount_paid" db:"amount_paid"`
	CarryForward decimal.Decimal `json:"carry_forward" db:"carry_forward"`

	DueDate time.Time  `json:"due_date" db:"due_date"`
	Status  BillStatus `json:"status" db:"status"`
	Version int        `json:"version" db:"version"`

	GeneratedAt time.Time `json:"generated_at" db:"generated_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// CalculateTotalDue sums every charge plus the balance forwarded from the previous period
func (b *Bill) CalculateTotalDue() decimal.Decimal {
	return b.RentCharge.
		Add(b.ElectricityCharge).
		Add(b.MiscCharge).
		Add(b.BalanceForward)
}

// CalculateCarryForward returns what moves into the next period.
// Overpayment is kept as a negative (credit) balance.
func (b *Bill) CalculateCarryForward() decimal.Decimal {
	return b.TotalDue.Sub(b.AmountPaid)
}

// DeriveStatus computes the status from the amount paid
func (b *Bill) DeriveStatus() BillStatus {
	switch {
	case b.AmountPaid.IsZero() && b.TotalDue.IsPositive():
		return BillStatusUnpaid
	case b.AmountPaid.LessThan(b.TotalDue):
		return BillStatusPartiallyPaid
	case b.AmountPaid.Equal(b.TotalDue):
		return BillStatusPaid
	default:
		return BillStatusOverpaid
	}
}

// ApplyPayment adds a payment amount and refreshes the derived fields
func (b *Bill) ApplyPayment(amount decimal.Decimal) {
	b.AmountPaid = b.AmountPaid.Add(amount)
	b.CarryForward = b.CalculateCarryForward()
	b.Status = b.DeriveStatus()
}

// IsOverdue checks if the bill is past due with an outstanding balance
func (b *Bill) IsOverdue(asOf time.Time) bool {
	return asOf.After(b.DueDate) && b.CarryForward.IsPositive()
}

// DaysOverdue returns the number of days past the due date
func (b *Bill) DaysOverdue(asOf time.Time) int {
	if !b.IsOverdue(asOf) {
		return 0
	}
	return int(asOf.Sub(b.DueDate).Hours() / 24)
}

// BillSummary provides a compact view of a bill for listings
type BillSummary struct {
	BillID       uuid.UUID       `json:"bill_id"`
	TenantID     uuid.UUID       `json:"tenant_id"`
	Period       string          `json:"period"`
	TotalDue     decimal.Decimal `json:"total_due"`
	AmountPaid   decimal.Decimal `json:"amount_paid"`
	CarryForward decimal.Decimal `json:"carry_forward"`
	DueDate      time.Time       `json:"due_date"`
	Status       BillStatus      `json:"status"`
	DaysUntilDue int             `json:"days_until_due"`
	DaysOverdue  int             `json:"days_overdue"`
}

// ToSummary converts a Bill to a BillSummary
func (b *Bill) ToSummary(asOf time.Time) BillSummary {
	summary := BillSummary{
		BillID:       b.ID,
		TenantID:     b.TenantID,
		Period:       b.Period.String(),
		TotalDue:     b.TotalDue,
		AmountPaid:   b.AmountPaid,
		CarryForward: b.CarryForward,
		DueDate:      b.DueDate,
		Status:       b.Status,
	}

	if asOf.Before(b.DueDate) {
		summary.DaysUntilDue = int(b.DueDate.Sub(asOf).Hours() / 24)
	} else {
		summary.DaysOverdue = b.DaysOverdue(asOf)
	}

	return summary
}
