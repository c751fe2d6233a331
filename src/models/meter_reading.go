package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MeterReading is the electric meter value recorded for a room once per period.
// Units and amount are derived when the reading is recorded and frozen once a
// bill has consumed the reading.
type MeterReading struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	RoomID          uuid.UUID       `json:"room_id" db:"room_id"`
	Period          Period          `json:"period"`
	ReadingValue    decimal.Decimal `json:"reading_value" db:"reading_value"`
	ReadingDate     time.Time       `json:"reading_date" db:"reading_date"`
	PreviousReading decimal.Decimal `json:"previous_reading" db:"previous_reading"`
	UnitsConsumed   decimal.Decimal `json:"units_consumed" db:"units_consumed"`
	UnitRate        decimal.Decimal `json:"unit_rate" db:"unit_rate"`
	Amount          decimal.Decimal `json:"amount" db:"amount"`
	Billed          bool            `json:"billed" db:"billed"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// Validation errors
var (
	ErrNegativeReading = errors.New("meter reading must not be negative")
	ErrReadingBilled   = errors.New("meter reading already consumed by a bill")
)

// Validate validates the reading value and period
func (m *MeterReading) Validate() error {
	if m.ReadingValue.IsNegative() {
		return ErrNegativeReading
	}
	return m.Period.Validate()
}
