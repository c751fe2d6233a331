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

func TestRecordPaymentAppliesToBill(t *testing.T) {
	db, mock := newMock(t)
	svc := NewPaymentService(db)
	f := newFixture()
	billID := uuid.New()
	due := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").WithArgs(f.tenantID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("FROM bills WHERE tenant_id").
		WithArgs(f.tenantID, 2024, 3).
		WillReturnRows(sqlmock.NewRows(columns(billColumns)).AddRow(f.billRow(billID, "5320.00", "0.00", "5320.00", due)...))
	mock.ExpectExec("INSERT INTO payments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE bills").
		WithArgs(d("5000.00"), d("320.00"), models.BillStatusPartiallyPaid, 2, sqlmock.AnyArg(), billID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := svc.RecordPayment(context.Background(), &models.Payment{
		TenantID: f.tenantID,
		Period:   f.period,
		Amount:   d("5000.00"),
		Method:   models.PaymentMethodUPI,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Bill)
	assert.Equal(t, billID, *result.Payment.BillID)
	assert.True(t, result.Bill.CarryForward.Equal(d("320")), "Expected 320, got %s", result.Bill.CarryForward)
	assert.Equal(t, models.BillStatusPartiallyPaid, result.Bill.Status)
	assert.Equal(t, 2, result.Bill.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordPaymentBeforeBilling(t *testing.T) {
	db, mock := newMock(t)
	svc := NewPaymentService(db)
	f := newFixture()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("FROM bills WHERE tenant_id").WillReturnRows(sqlmock.NewRows(columns(billColumns)))
	mock.ExpectExec("INSERT INTO payments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := svc.RecordPayment(context.Background(), &models.Payment{
		TenantID: f.tenantID,
		Period:   f.period,
		Amount:   d("1000"),
		Method:   models.PaymentMethodCash,
	})
	require.NoError(t, err)
	assert.Nil(t, result.Bill)
	assert.Nil(t, result.Payment.BillID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordPaymentUnknownTenant(t *testing.T) {
	db, mock := newMock(t)
	svc := NewPaymentService(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	_, err := svc.RecordPayment(context.Background(), &models.Payment{
		TenantID: uuid.New(),
		Period:   models.Period{Month: 3, Year: 2024},
		Amount:   d("1000"),
		Method:   models.PaymentMethodCash,
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordPaymentValidation(t *testing.T) {
	svc := NewPaymentService(nil)
	tests := []struct {
		name    string
		payment models.Payment
	}{
		{"zero amount", models.Payment{Period: models.Period{Month: 3, Year: 2024}, Amount: d("0"), Method: models.PaymentMethodCash}},
		{"unknown method", models.Payment{Period: models.Period{Month: 3, Year: 2024}, Amount: d("10"), Method: "barter"}},
		{"bad period", models.Payment{Period: models.Period{Month: 0, Year: 2024}, Amount: d("10"), Method: models.PaymentMethodCash}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RecordPayment(context.Background(), &tt.payment)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}
