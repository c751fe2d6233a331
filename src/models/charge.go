package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChargeType represents the kind of ad-hoc charge
type ChargeType string

const (
	ChargeTypeMiscellaneous ChargeType = "miscellaneous"
	ChargeTypeMaintenance   ChargeType = "maintenance"
	ChargeTypeLateFee       ChargeType = "late_fee"
	ChargeTypeAdjustment    ChargeType = "adjustment" // May be negative (discount)
	ChargeTypeInformational ChargeType = "informational"
)

// Charge is an ad-hoc ledger entry against a tenant for a billing period.
// Entries are append-only.
type Charge struct {
	ID                   uuid.UUID       `json:"id" db:"id"`
	TenantID             uuid.UUID       `json:"tenant_id" db:"tenant_id"`
	RoomID               *uuid.UUID      `json:"room_id,omitempty" db:"room_id"`
	Period               Period          `json:"period"`
	Type                 ChargeType      `json:"type" db:"charge_type"`
	Amount               decimal.Decimal `json:"amount" db:"amount"`
	Description          string          `json:"description" db:"description"`
	MaintenanceRequestID *uuid.UUID      `json:"maintenance_request_id,omitempty" db:"maintenance_request_id"`
	SourceBillID         *uuid.UUID      `json:"source_bill_id,omitempty" db:"source_bill_id"` // Bill that triggered a late fee
	CreatedAt            time.Time       `json:"created_at" db:"created_at"`
}

// Validation errors
var (
	ErrInvalidChargeType   = errors.New("unknown charge type")
	ErrInvalidChargeAmount = errors.New("charge amount must be positive")
)

// Validate validates the charge
func (c *Charge) Validate() error {
	switch c.Type {
	case ChargeTypeMiscellaneous, ChargeTypeMaintenance, ChargeTypeLateFee, ChargeTypeInformational:
		if !c.Amount.IsPositive() {
			return ErrInvalidChargeAmount
		}
	case ChargeTypeAdjustment:
		if c.Amount.IsZero() {
			return ErrInvalidChargeAmount
		}
	default:
		return ErrInvalidChargeType
	}
	return c.Period.Validate()
}

// IsBillable returns true if the entry counts towards the bill's misc charge
func (c *Charge) IsBillable() bool {
	switch c.Type {
	case ChargeTypeMiscellaneous, ChargeTypeMaintenance, ChargeTypeLateFee, ChargeTypeAdjustment:
		return true
	default:
		return false
	}
}

// SumBillableCharges totals the billable charges
func SumBillableCharges(charges []Charge) decimal.Decimal {
	total := decimal.Zero
	for i := range charges {
		if charges[i].IsBillable() {
			total = total.Add(charges[i].Amount)
		}
	}
	return total
}
