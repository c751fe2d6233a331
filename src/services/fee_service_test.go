package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/livefire2015/ez-rent/src/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFeeService(t *testing.T) (*FeeService, sqlmock.Sqlmock) {
	db, mock := newMock(t)
	billingService := NewBillingService(db, nil, nil)
	return NewFeeService(db, billingService, nil, nil), mock
}

func TestAssessLateFees(t *testing.T) {
	svc, mock := newFeeService(t)
	f := newFixture()
	billID := uuid.New()
	due := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	asOf := time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM system_settings").WillReturnRows(settingsRows(defaultSettings()))
	mock.ExpectQuery("FROM bills b").
		WithArgs(2024, 3, asOf).
		WillReturnRows(sqlmock.NewRows(columns(billColumns)).AddRow(f.billRow(billID, "5320.00", "5000.00", "320.00", due)...))
	mock.ExpectExec("INSERT INTO charges").
		WithArgs(sqlmock.AnyArg(), f.tenantID, f.roomID, 4, 2024, models.ChargeTypeLateFee, d("6.40"),
			sqlmock.AnyArg(), nil, billID, asOf).
		WillReturnResult(sqlmock.NewResult(0, 1))

	run, err := svc.AssessLateFees(context.Background(), f.period, asOf)
	require.NoError(t, err)
	require.Len(t, run.Assessed, 1)

	fee := run.Assessed[0]
	assert.Equal(t, billID, fee.BillID)
	assert.Equal(t, 14, fee.DaysOverdue)
	assert.Equal(t, models.Period{Month: 4, Year: 2024}, fee.Charge.Period)
	assert.True(t, fee.Charge.Amount.Equal(d("6.40")), "Expected 6.40, got %s", fee.Charge.Amount)
	assert.True(t, run.Total.Equal(d("6.40")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssessLateFeesSkipsAlreadyCharged(t *testing.T) {
	svc, mock := newFeeService(t)
	f := newFixture()
	due := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	asOf := time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM system_settings").WillReturnRows(settingsRows(defaultSettings()))
	mock.ExpectQuery("FROM bills b").
		WillReturnRows(sqlmock.NewRows(columns(billColumns)).AddRow(f.billRow(uuid.New(), "5320.00", "0.00", "5320.00", due)...))
	// A concurrent run inserted the fee first
	mock.ExpectExec("INSERT INTO charges").WillReturnResult(sqlmock.NewResult(0, 0))

	run, err := svc.AssessLateFees(context.Background(), f.period, asOf)
	require.NoError(t, err)
	assert.Empty(t, run.Assessed)
	assert.True(t, run.Total.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssessLateFeesRequiresPercentage(t *testing.T) {
	svc, mock := newFeeService(t)

	mock.ExpectQuery("FROM system_settings").WillReturnRows(settingsRows(map[string]string{
		models.SettingElectricUnitCost: "8.00",
	}))

	_, err := svc.AssessLateFees(context.Background(), models.Period{Month: 3, Year: 2024}, fixedNow)
	assert.ErrorIs(t, err, models.ErrSettingMissing)
}
