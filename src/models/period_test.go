package models

import (
	"errors"
	"testing"
	"time"
)

func TestPeriodNavigation(t *testing.T) {
	tests := []struct {
		period   Period
		next     Period
		previous Period
	}{
		{Period{Month: 3, Year: 2024}, Period{Month: 4, Year: 2024}, Period{Month: 2, Year: 2024}},
		{Period{Month: 12, Year: 2024}, Period{Month: 1, Year: 2025}, Period{Month: 11, Year: 2024}},
		{Period{Month: 1, Year: 2024}, Period{Month: 2, Year: 2024}, Period{Month: 12, Year: 2023}},
	}

	for _, tt := range tests {
		t.Run(tt.period.String(), func(t *testing.T) {
			if got := tt.period.Next(); got != tt.next {
				t.Errorf("Next() = %s, want %s", got, tt.next)
			}
			if got := tt.period.Previous(); got != tt.previous {
				t.Errorf("Previous() = %s, want %s", got, tt.previous)
			}
			if !tt.previous.Before(tt.period) || tt.next.Before(tt.period) {
				t.Errorf("Before() ordering broken around %s", tt.period)
			}
		})
	}
}

func TestPeriodBounds(t *testing.T) {
	p := Period{Month: 2, Year: 2024}

	if want := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC); !p.Start().Equal(want) {
		t.Errorf("Start() = %s, want %s", p.Start(), want)
	}
	if want := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC); !p.End().Equal(want) {
		t.Errorf("End() = %s, want %s", p.End(), want)
	}
	if !p.Contains(time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC)) {
		t.Error("Expected leap day to be inside period")
	}
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("2024-03")
	if err != nil || p != (Period{Month: 3, Year: 2024}) {
		t.Errorf("ParsePeriod() = %v, %v", p, err)
	}

	for _, bad := range []string{"", "2024-13", "03-2024", "1999-12"} {
		if _, err := ParsePeriod(bad); !errors.Is(err, ErrInvalidPeriod) {
			t.Errorf("ParsePeriod(%q) error = %v, want ErrInvalidPeriod", bad, err)
		}
	}
}
