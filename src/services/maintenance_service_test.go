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

func maintenanceRows(id, roomID uuid.UUID, tenantID *uuid.UUID, status models.MaintenanceStatus, chargeTenant bool) *sqlmock.Rows {
	var tenant any
	if tenantID != nil {
		tenant = tenantID.String()
	}
	return sqlmock.NewRows(columns(maintenanceColumns)).AddRow(
		id.String(), roomID.String(), tenant, "Leaking tap", "", "high", string(status),
		"500.00", nil, chargeTenant, fixedNow, nil, nil, fixedNow,
	)
}

func TestChangeStatusCompletionChargesTenant(t *testing.T) {
	db, mock := newMock(t)
	svc := NewMaintenanceService(db)
	f := newFixture()
	id := uuid.New()
	completedAt := time.Date(2024, 3, 18, 15, 0, 0, 0, time.UTC)
	cost := d("450.00")

	mock.ExpectBegin()
	mock.ExpectQuery("FROM maintenance_requests WHERE id").WithArgs(id).
		WillReturnRows(maintenanceRows(id, f.roomID, &f.tenantID, models.MaintenanceStatusInProgress, true))
	mock.ExpectExec("UPDATE maintenance_requests").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO maintenance_status_transitions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO charges").
		WithArgs(sqlmock.AnyArg(), f.tenantID, f.roomID, 3, 2024, models.ChargeTypeMaintenance, cost,
			"Maintenance: Leaking tap", id, nil, completedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := svc.ChangeStatus(context.Background(), id, TransitionRequest{
		Status:     models.MaintenanceStatusCompleted,
		ActualCost: &cost,
		At:         completedAt,
	})
	require.NoError(t, err)
	assert.Equal(t, models.MaintenanceStatusCompleted, result.Request.Status)
	assert.Equal(t, models.MaintenanceStatusInProgress, result.Transition.FromStatus)
	require.NotNil(t, result.Charge)
	assert.True(t, result.Charge.Amount.Equal(cost))
	assert.Equal(t, f.period, result.Charge.Period)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeStatusWithoutChargeFlag(t *testing.T) {
	db, mock := newMock(t)
	svc := NewMaintenanceService(db)
	f := newFixture()
	id := uuid.New()
	cost := d("450.00")

	mock.ExpectBegin()
	mock.ExpectQuery("FROM maintenance_requests WHERE id").
		WillReturnRows(maintenanceRows(id, f.roomID, &f.tenantID, models.MaintenanceStatusInProgress, false))
	mock.ExpectExec("UPDATE maintenance_requests").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO maintenance_status_transitions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := svc.ChangeStatus(context.Background(), id, TransitionRequest{
		Status:     models.MaintenanceStatusCompleted,
		ActualCost: &cost,
		At:         fixedNow,
	})
	require.NoError(t, err)
	assert.Nil(t, result.Charge)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeStatusInvalidTransition(t *testing.T) {
	db, mock := newMock(t)
	svc := NewMaintenanceService(db)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM maintenance_requests WHERE id").
		WillReturnRows(maintenanceRows(id, uuid.New(), nil, models.MaintenanceStatusPending, false))
	mock.ExpectRollback()

	_, err := svc.ChangeStatus(context.Background(), id, TransitionRequest{Status: models.MaintenanceStatusCompleted})
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRequestChargeNeedsTenant(t *testing.T) {
	svc := NewMaintenanceService(nil)
	err := svc.CreateRequest(context.Background(), &models.MaintenanceRequest{
		RoomID:       uuid.New(),
		Title:        "Broken window",
		ChargeTenant: true,
	})
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, ErrChargeNeedsTenant)
}
