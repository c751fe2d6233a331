package services

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/livefire2015/ez-rent/src/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRoomDefaultsToAvailable(t *testing.T) {
	db, mock := newMock(t)
	svc := NewRoomService(db)

	mock.ExpectExec("INSERT INTO rooms").WillReturnResult(sqlmock.NewResult(0, 1))

	room := &models.Room{RoomNumber: "101", MonthlyRent: d("5000")}
	require.NoError(t, svc.CreateRoom(context.Background(), room))
	assert.Equal(t, models.RoomStatusAvailable, room.Status)
	assert.NotEqual(t, uuid.Nil, room.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRoomValidation(t *testing.T) {
	svc := NewRoomService(nil)
	tests := []struct {
		name string
		room models.Room
	}{
		{"missing number", models.Room{MonthlyRent: d("5000")}},
		{"negative rent", models.Room{RoomNumber: "101", MonthlyRent: d("-1")}},
		{"created occupied", models.Room{RoomNumber: "101", MonthlyRent: d("5000"), Status: models.RoomStatusOccupied}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.CreateRoom(context.Background(), &tt.room)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestCreateRoomDuplicateNumber(t *testing.T) {
	db, mock := newMock(t)
	svc := NewRoomService(db)

	mock.ExpectExec("INSERT INTO rooms").WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key"})

	err := svc.CreateRoom(context.Background(), &models.Room{RoomNumber: "101", MonthlyRent: d("5000")})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestDeleteRoomReferencedByTenant(t *testing.T) {
	db, mock := newMock(t)
	svc := NewRoomService(db)
	id := uuid.New()

	mock.ExpectQuery("SELECT EXISTS").WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := svc.DeleteRoom(context.Background(), id)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRoomNotFound(t *testing.T) {
	db, mock := newMock(t)
	svc := NewRoomService(db)
	id := uuid.New()

	mock.ExpectQuery("SELECT EXISTS").WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("DELETE FROM rooms").WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 0))

	err := svc.DeleteRoom(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateRoomCannotVacateOccupiedRoom(t *testing.T) {
	db, mock := newMock(t)
	svc := NewRoomService(db)
	room := &models.Room{ID: uuid.New(), RoomNumber: "101", MonthlyRent: d("5000"), Status: models.RoomStatusAvailable}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM rooms").WithArgs(room.ID).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("occupied"))
	mock.ExpectRollback()

	err := svc.UpdateRoom(context.Background(), room)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}
