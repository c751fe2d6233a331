package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestTenantValidate(t *testing.T) {
	moveIn := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	before := moveIn.AddDate(0, 0, -1)

	tests := []struct {
		name    string
		tenant  Tenant
		wantErr error
	}{
		{"valid", Tenant{Name: "Ravi", Email: "ravi@example.com", MoveInDate: moveIn}, nil},
		{"missing name", Tenant{Name: " ", Email: "ravi@example.com"}, ErrTenantNameRequired},
		{"bad email", Tenant{Name: "Ravi", Email: "ravi"}, ErrInvalidEmail},
		{"negative deposit", Tenant{Name: "Ravi", Email: "ravi@example.com", SecurityDeposit: decimal.NewFromInt(-1)}, ErrInvalidDeposit},
		{"move out before move in", Tenant{Name: "Ravi", Email: "ravi@example.com", MoveInDate: moveIn, MoveOutDate: &before}, ErrMoveOutBeforeIn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.tenant.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTenantOccupiesDuring(t *testing.T) {
	roomID := uuid.New()
	moveIn := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	moveOut := time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC)

	tenant := Tenant{RoomID: &roomID, MoveInDate: moveIn, MoveOutDate: &moveOut, Active: true}

	tests := []struct {
		period   Period
		expected bool
	}{
		{Period{Month: 2, Year: 2024}, false},
		{Period{Month: 3, Year: 2024}, true}, // Partial month billed in full
		{Period{Month: 6, Year: 2024}, true},
		{Period{Month: 7, Year: 2024}, false},
	}

	for _, tt := range tests {
		t.Run(tt.period.String(), func(t *testing.T) {
			if got := tenant.OccupiesDuring(tt.period); got != tt.expected {
				t.Errorf("OccupiesDuring() = %v, want %v", got, tt.expected)
			}
		})
	}

	// Moved out mid-month: the final month is still occupied, later ones are not
	movedOut := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	tenant = Tenant{RoomID: &roomID, MoveInDate: moveIn, MoveOutDate: &movedOut, Active: false}
	if !tenant.OccupiesDuring(Period{Month: 3, Year: 2024}) {
		t.Error("Expected moved-out tenant to occupy the month they left")
	}
	if tenant.OccupiesDuring(Period{Month: 4, Year: 2024}) {
		t.Error("Expected moved-out tenant not to occupy the following month")
	}

	tenant = Tenant{MoveInDate: moveIn, Active: true}
	if tenant.OccupiesDuring(Period{Month: 4, Year: 2024}) {
		t.Error("Expected tenant without a room not to occupy any period")
	}
}

func TestSumBillableCharges(t *testing.T) {
	charges := []Charge{
		{Type: ChargeTypeMiscellaneous, Amount: decimal.NewFromInt(100)},
		{Type: ChargeTypeMaintenance, Amount: decimal.NewFromInt(250)},
		{Type: ChargeTypeLateFee, Amount: decimal.RequireFromString("16.00")},
		{Type: ChargeTypeAdjustment, Amount: decimal.NewFromInt(-50)},
		{Type: ChargeTypeInformational, Amount: decimal.NewFromInt(1000)},
	}

	total := SumBillableCharges(charges)
	if !total.Equal(decimal.NewFromInt(316)) {
		t.Errorf("Expected 316, got %s", total)
	}
}
