package services

import (
	"database/sql"
	"database/sql/driver"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/livefire2015/ez-rent/src/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func columns(list string) []string {
	parts := strings.Split(list, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func settingsRows(values map[string]string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"key", "value", "description", "updated_at"})
	for k, v := range values {
		rows.AddRow(k, v, "", fixedNow)
	}
	return rows
}

func defaultSettings() map[string]string {
	return map[string]string{
		models.SettingElectricUnitCost:  "8.00",
		models.SettingBillDueDays:       "10",
		models.SettingLateFeePercentage: "2",
	}
}

type fixture struct {
	tenantID uuid.UUID
	roomID   uuid.UUID
	period   models.Period
}

func newFixture() fixture {
	return fixture{
		tenantID: uuid.New(),
		roomID:   uuid.New(),
		period:   models.Period{Month: 3, Year: 2024},
	}
}

func (f fixture) assignmentRows() *sqlmock.Rows {
	cols := append(columns(tenantColumns), columns(roomColumns)...)
	moveIn := time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(cols).AddRow(
		f.tenantID.String(), "Asha Verma", "asha@example.com", "", "", "10000.00",
		f.roomID.String(), moveIn, nil, true, moveIn, moveIn,
		f.roomID.String(), "101", 1, "5000.00", "occupied", "MTR-101",
		"", moveIn, moveIn,
	)
}

// movedOutAssignmentRows is the pairing of a tenant who left the room during the fixture period
func (f fixture) movedOutAssignmentRows(left time.Time) *sqlmock.Rows {
	cols := append(columns(tenantColumns), columns(roomColumns)...)
	moveIn := time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(cols).AddRow(
		f.tenantID.String(), "Asha Verma", "asha@example.com", "", "", "10000.00",
		f.roomID.String(), moveIn, left, false, moveIn, left,
		f.roomID.String(), "101", 1, "5000.00", "available", "MTR-101",
		"", moveIn, moveIn,
	)
}

func (f fixture) readingRow(period models.Period, value string, billed bool) []driver.Value {
	return []driver.Value{
		uuid.New().String(), f.roomID.String(), period.Month, period.Year, value, period.End(),
		"0", "0", "8.00", "0", billed, fixedNow, fixedNow,
	}
}

func (f fixture) readingRows(period models.Period, value string) *sqlmock.Rows {
	return sqlmock.NewRows(columns(readingColumns)).AddRow(f.readingRow(period, value, false)...)
}

func (f fixture) billRow(id uuid.UUID, totalDue, amountPaid, carry string, dueDate time.Time) []driver.Value {
	return []driver.Value{
		id.String(), f.tenantID.String(), f.roomID.String(), nil, f.period.Month, f.period.Year,
		"100", "140", "40", "8.00",
		"5000.00", "320.00", "0.00", "0.00",
		totalDue, amountPaid, carry, dueDate, "unpaid", 1, fixedNow, fixedNow,
	}
}
