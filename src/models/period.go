package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPeriod is returned when a month/year pair is out of range
var ErrInvalidPeriod = errors.New("period must have month 1-12 and year 2000-9999")

// Period identifies a monthly billing period
type Period struct {
	Month int `json:"month" db:"period_month"`
	Year  int `json:"year" db:"period_year"`
}

// NewPeriod creates a validated period
func NewPeriod(month, year int) (Period, error) {
	p := Period{Month: month, Year: year}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// PeriodOf returns the period containing t
func PeriodOf(t time.Time) Period {
	return Period{Month: int(t.Month()), Year: t.Year()}
}

// ParsePeriod parses a period in YYYY-MM form
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return NewPeriod(int(t.Month()), t.Year())
}

// Validate checks the month and year ranges
func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 || p.Year < 2000 || p.Year > 9999 {
		return ErrInvalidPeriod
	}
	return nil
}

// Start returns midnight UTC on the first day of the period
func (p Period) Start() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
}

// End returns the last day of the period at midnight UTC
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, -1)
}

// Next returns the following period
func (p Period) Next() Period {
	return PeriodOf(p.Start().AddDate(0, 1, 0))
}

// Previous returns the preceding period
func (p Period) Previous() Period {
	return PeriodOf(p.Start().AddDate(0, -1, 0))
}

// Before reports whether p is earlier than other
func (p Period) Before(other Period) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

// Contains reports whether t falls inside the period
func (p Period) Contains(t time.Time) bool {
	return PeriodOf(t.UTC()) == p
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}
