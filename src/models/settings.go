package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Documented system setting keys
const (
	SettingElectricUnitCost  = "ElectricUnitCost"  // Decimal, currency per unit
	SettingBillDueDays       = "BillDueDays"       // Integer, days after period start
	SettingLateFeePercentage = "LateFeePercentage" // Decimal, percent of outstanding balance
)

// ErrSettingMissing is returned when a key is absent or cannot be parsed
var ErrSettingMissing = errors.New("configuration missing")

// ErrUnitRatePrecision is returned for unit costs finer than the stored scale
var ErrUnitRatePrecision = fmt.Errorf("electricity unit cost allows at most %d decimal places", UnitRateScale)

// UnitRateScale matches the NUMERIC(10,4) unit_rate columns
const UnitRateScale = 4

// SystemSetting is an administrator-tunable key/value pair
type SystemSetting struct {
	Key         string    `json:"key" db:"key"`
	Value       string    `json:"value" db:"value"`
	Description string    `json:"description,omitempty" db:"description"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Settings is an immutable snapshot of the system settings taken at the
// start of a computation.
type Settings struct {
	values map[string]string
}

// NewSettings copies values into a new snapshot
func NewSettings(values map[string]string) Settings {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return Settings{values: copied}
}

// Get returns the raw value for key
func (s Settings) Get(key string) (string, bool) {
	v, ok := s.values[key]
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// Values returns a copy of all entries
func (s Settings) Values() map[string]string {
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// WithDefaults returns a snapshot where missing keys are filled from defaults
func (s Settings) WithDefaults(defaults map[string]string) Settings {
	merged := s.Values()
	for k, v := range defaults {
		if _, ok := s.Get(k); !ok && strings.TrimSpace(v) != "" {
			merged[k] = v
		}
	}
	return Settings{values: merged}
}

// Decimal parses key as a non-negative decimal
func (s Settings) Decimal(key string) (decimal.Decimal, error) {
	raw, ok := s.Get(key)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrSettingMissing, key)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s has invalid value %q", ErrSettingMissing, key, raw)
	}
	return d, nil
}

// Int parses key as a non-negative integer
func (s Settings) Int(key string) (int, error) {
	raw, ok := s.Get(key)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrSettingMissing, key)
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s has invalid value %q", ErrSettingMissing, key, raw)
	}
	return n, nil
}

// ElectricUnitCost returns the per-unit electricity rate
func (s Settings) ElectricUnitCost() (decimal.Decimal, error) {
	return s.Decimal(SettingElectricUnitCost)
}

// BillDueDays returns the due-day window
func (s Settings) BillDueDays() (int, error) {
	return s.Int(SettingBillDueDays)
}

// LateFeePercentage returns the late fee rate in percent
func (s Settings) LateFeePercentage() (decimal.Decimal, error) {
	return s.Decimal(SettingLateFeePercentage)
}

// ValidateSetting checks a value against the documented key formats.
// Unknown keys are accepted as free-form strings.
func ValidateSetting(key, value string) error {
	snapshot := NewSettings(map[string]string{key: value})
	var err error
	switch key {
	case SettingElectricUnitCost:
		var rate decimal.Decimal
		if rate, err = snapshot.Decimal(key); err == nil && !rate.Equal(rate.Round(UnitRateScale)) {
			err = ErrUnitRatePrecision
		}
	case SettingLateFeePercentage:
		_, err = snapshot.Decimal(key)
	case SettingBillDueDays:
		_, err = snapshot.Int(key)
	}
	return err
}
