package models

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestSettingsParsing(t *testing.T) {
	settings := NewSettings(map[string]string{
		SettingElectricUnitCost:  " 8.50 ",
		SettingBillDueDays:       "10",
		SettingLateFeePercentage: "abc",
	})

	rate, err := settings.ElectricUnitCost()
	if err != nil || !rate.Equal(decimal.RequireFromString("8.5")) {
		t.Errorf("Expected rate 8.5, got %s (%v)", rate, err)
	}

	days, err := settings.BillDueDays()
	if err != nil || days != 10 {
		t.Errorf("Expected 10 due days, got %d (%v)", days, err)
	}

	if _, err := settings.LateFeePercentage(); !errors.Is(err, ErrSettingMissing) {
		t.Errorf("Expected ErrSettingMissing for malformed value, got %v", err)
	}
}

func TestSettingsMissingKeys(t *testing.T) {
	settings := NewSettings(map[string]string{SettingBillDueDays: ""})

	if _, err := settings.ElectricUnitCost(); !errors.Is(err, ErrSettingMissing) {
		t.Errorf("Expected ErrSettingMissing, got %v", err)
	}
	if _, err := settings.BillDueDays(); !errors.Is(err, ErrSettingMissing) {
		t.Errorf("Expected blank value to count as missing, got %v", err)
	}
}

func TestSettingsSnapshotIsolation(t *testing.T) {
	values := map[string]string{SettingElectricUnitCost: "8"}
	settings := NewSettings(values)

	values[SettingElectricUnitCost] = "12"
	settings.Values()[SettingElectricUnitCost] = "15"

	if v, _ := settings.Get(SettingElectricUnitCost); v != "8" {
		t.Errorf("Expected snapshot to keep 8, got %s", v)
	}
}

func TestSettingsWithDefaults(t *testing.T) {
	settings := NewSettings(map[string]string{SettingElectricUnitCost: "9"}).WithDefaults(map[string]string{
		SettingElectricUnitCost: "7",
		SettingBillDueDays:      "5",
	})

	if v, _ := settings.Get(SettingElectricUnitCost); v != "9" {
		t.Errorf("Expected stored value to win, got %s", v)
	}
	if v, _ := settings.Get(SettingBillDueDays); v != "5" {
		t.Errorf("Expected default to fill missing key, got %s", v)
	}
}

func TestValidateSetting(t *testing.T) {
	tests := []struct {
		key     string
		value   string
		wantErr bool
	}{
		{SettingElectricUnitCost, "8.25", false},
		{SettingElectricUnitCost, "-1", true},
		{SettingElectricUnitCost, "8.1234", false},
		{SettingElectricUnitCost, "8.12340", false},
		{SettingElectricUnitCost, "8.12345", true},
		{SettingBillDueDays, "15", false},
		{SettingBillDueDays, "1.5", true},
		{SettingLateFeePercentage, "2", false},
		{"Currency", "INR", false},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			err := ValidateSetting(tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSetting() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateSettingUnitRatePrecision(t *testing.T) {
	err := ValidateSetting(SettingElectricUnitCost, "8.12345")
	if !errors.Is(err, ErrUnitRatePrecision) {
		t.Errorf("Expected ErrUnitRatePrecision, got %v", err)
	}
}
