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

func roomRows(id uuid.UUID, status models.RoomStatus) *sqlmock.Rows {
	return sqlmock.NewRows(columns(roomColumns)).AddRow(
		id.String(), "101", 1, "5000.00", string(status), "MTR-101", "", fixedNow, fixedNow,
	)
}

func TestCreateTenantMovesIntoAvailableRoom(t *testing.T) {
	db, mock := newMock(t)
	svc := NewTenantService(db)
	roomID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM rooms WHERE id").WithArgs(roomID).WillReturnRows(roomRows(roomID, models.RoomStatusAvailable))
	mock.ExpectExec("UPDATE rooms SET status").
		WithArgs(models.RoomStatusOccupied, sqlmock.AnyArg(), roomID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO tenants").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tenant := &models.Tenant{
		Name:       "Asha Verma",
		Email:      "asha@example.com",
		RoomID:     &roomID,
		MoveInDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, svc.CreateTenant(context.Background(), tenant))
	assert.True(t, tenant.Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTenantRejectsOccupiedRoom(t *testing.T) {
	db, mock := newMock(t)
	svc := NewTenantService(db)
	roomID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM rooms WHERE id").WithArgs(roomID).WillReturnRows(roomRows(roomID, models.RoomStatusOccupied))
	mock.ExpectRollback()

	err := svc.CreateTenant(context.Background(), &models.Tenant{
		Name:   "Ravi Kumar",
		Email:  "ravi@example.com",
		RoomID: &roomID,
	})
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTenantValidation(t *testing.T) {
	svc := NewTenantService(nil)
	err := svc.CreateTenant(context.Background(), &models.Tenant{Name: "No Email", Email: "not-an-email"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, models.ErrInvalidEmail)
}

func TestDeleteTenantWithHistory(t *testing.T) {
	db, mock := newMock(t)
	svc := NewTenantService(db)
	id := uuid.New()

	mock.ExpectQuery("SELECT EXISTS").WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := svc.DeleteTenant(context.Background(), id)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMoveOutFreesRoom(t *testing.T) {
	db, mock := newMock(t)
	svc := NewTenantService(db)
	f := newFixture()
	moveIn := time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC)
	moveOut := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM tenants WHERE id").WithArgs(f.tenantID).WillReturnRows(
		sqlmock.NewRows(columns(tenantColumns)).AddRow(
			f.tenantID.String(), "Asha Verma", "asha@example.com", "", "", "0",
			f.roomID.String(), moveIn, nil, true, moveIn, moveIn,
		))
	mock.ExpectExec("UPDATE rooms SET status").
		WithArgs(models.RoomStatusAvailable, sqlmock.AnyArg(), f.roomID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE tenants\s+SET move_out_date = \$1, active = FALSE`).
		WithArgs(moveOut, sqlmock.AnyArg(), f.tenantID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tenant, err := svc.MoveOut(context.Background(), f.tenantID, moveOut)
	require.NoError(t, err)
	assert.False(t, tenant.Active)
	require.NotNil(t, tenant.RoomID)
	assert.Equal(t, f.roomID, *tenant.RoomID)
	require.NotNil(t, tenant.MoveOutDate)
	assert.Equal(t, moveOut, *tenant.MoveOutDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActiveAssignments(t *testing.T) {
	db, mock := newMock(t)
	svc := NewTenantService(db)
	f := newFixture()

	mock.ExpectQuery("FROM tenants t").
		WithArgs(f.period.End(), f.period.Start()).
		WillReturnRows(f.assignmentRows())

	assignments, err := svc.ActiveAssignments(context.Background(), f.period)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, f.tenantID, assignments[0].Tenant.ID)
	assert.Equal(t, f.roomID, assignments[0].Room.ID)
	assert.True(t, assignments[0].Room.MonthlyRent.Equal(d("5000")))
	assert.True(t, assignments[0].Tenant.OccupiesDuring(f.period))
}

func TestMoveInAfterMoveOut(t *testing.T) {
	db, mock := newMock(t)
	svc := NewTenantService(db)
	f := newFixture()
	newRoom := uuid.New()
	moveIn := time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC)
	left := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	back := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM tenants WHERE id").WithArgs(f.tenantID).WillReturnRows(
		sqlmock.NewRows(columns(tenantColumns)).AddRow(
			f.tenantID.String(), "Asha Verma", "asha@example.com", "", "", "0",
			f.roomID.String(), moveIn, left, false, moveIn, left,
		))
	mock.ExpectQuery("FROM rooms WHERE id").WithArgs(newRoom).WillReturnRows(roomRows(newRoom, models.RoomStatusAvailable))
	mock.ExpectExec("UPDATE rooms SET status").
		WithArgs(models.RoomStatusOccupied, sqlmock.AnyArg(), newRoom).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE tenants").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tenant, err := svc.MoveIn(context.Background(), f.tenantID, newRoom, back)
	require.NoError(t, err)
	assert.True(t, tenant.Active)
	assert.Equal(t, newRoom, *tenant.RoomID)
	assert.Nil(t, tenant.MoveOutDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentIncludesMoveOutMonth(t *testing.T) {
	db, mock := newMock(t)
	svc := NewTenantService(db)
	f := newFixture()
	left := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`WHERE t.move_in_date <= \$1\s+AND \(t.move_out_date IS NULL OR t.move_out_date >= \$2\)`).
		WithArgs(f.period.End(), f.period.Start(), f.tenantID).
		WillReturnRows(f.movedOutAssignmentRows(left))

	a, err := svc.Assignment(context.Background(), f.tenantID, f.period)
	require.NoError(t, err)
	assert.False(t, a.Tenant.Active)
	assert.True(t, a.Tenant.OccupiesDuring(f.period))
	assert.NoError(t, mock.ExpectationsWereMet())
}
