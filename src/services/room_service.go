package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/livefire2015/ez-rent/src/models"
)

// RoomService manages rooms
type RoomService struct {
	db *sql.DB
}

// NewRoomService creates a new room service
func NewRoomService(db *sql.DB) *RoomService {
	return &RoomService{db: db}
}

const roomColumns = `id, room_number, floor, monthly_rent, status, electric_meter, description, created_at, updated_at`

func scanRoom(row rowScanner) (*models.Room, error) {
	room := &models.Room{}
	err := row.Scan(
		&room.ID, &room.RoomNumber, &room.Floor, &room.MonthlyRent, &room.Status,
		&room.ElectricMeter, &room.Description, &room.CreatedAt, &room.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return room, nil
}

// CreateRoom validates and inserts a room. New rooms start available unless a status is given.
func (s *RoomService) CreateRoom(ctx context.Context, room *models.Room) error {
	if room.Status == "" {
		room.Status = models.RoomStatusAvailable
	}
	if room.Status == models.RoomStatusOccupied {
		return invalid(fmt.Errorf("room becomes occupied only when a tenant moves in"))
	}
	if err := room.Validate(); err != nil {
		return invalid(err)
	}

	now := time.Now().UTC()
	room.ID = uuid.New()
	room.CreatedAt = now
	room.UpdatedAt = now

	query := `
		INSERT INTO rooms (` + roomColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		room.ID, room.RoomNumber, room.Floor, room.MonthlyRent, room.Status,
		room.ElectricMeter, room.Description, room.CreatedAt, room.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create room: %w", mapDBError(err))
	}
	return nil
}

// GetRoom retrieves a room by ID
func (s *RoomService) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE id = $1`
	room, err := scanRoom(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get room %s: %w", id, mapDBError(err))
	}
	return room, nil
}

// ListRooms returns rooms ordered by number, optionally filtered by status
func (s *RoomService) ListRooms(ctx context.Context, status models.RoomStatus) ([]*models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE ($1 = '' OR status = $1) ORDER BY room_number`
	rows, err := s.db.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*models.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

// UpdateRoom updates the editable room fields. Occupancy changes go through
// tenant move-in and move-out.
func (s *RoomService) UpdateRoom(ctx context.Context, room *models.Room) error {
	if err := room.Validate(); err != nil {
		return invalid(err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	var current models.RoomStatus
	err = tx.QueryRowContext(ctx, `SELECT status FROM rooms WHERE id = $1 FOR UPDATE`, room.ID).Scan(&current)
	if err != nil {
		return fmt.Errorf("failed to get room %s: %w", room.ID, mapDBError(err))
	}
	if room.Status != current && (room.Status == models.RoomStatusOccupied || current == models.RoomStatusOccupied) {
		return fmt.Errorf("%w: room %s occupancy changes through tenant move-in and move-out", ErrConflict, room.RoomNumber)
	}

	room.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE rooms
		SET room_number = $1, floor = $2, monthly_rent = $3, status = $4,
		    electric_meter = $5, description = $6, updated_at = $7
		WHERE id = $8
	`
	_, err = tx.ExecContext(ctx, query,
		room.RoomNumber, room.Floor, room.MonthlyRent, room.Status,
		room.ElectricMeter, room.Description, room.UpdatedAt, room.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update room: %w", mapDBError(err))
	}
	return tx.Commit()
}

// DeleteRoom removes a room that no tenant, reading or bill references
func (s *RoomService) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	var referenced bool
	query := `
		SELECT EXISTS (SELECT 1 FROM tenants WHERE room_id = $1)
		    OR EXISTS (SELECT 1 FROM bills WHERE room_id = $1)
	`
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&referenced); err != nil {
		return fmt.Errorf("failed to check room references: %w", err)
	}
	if referenced {
		return fmt.Errorf("%w: room %s is referenced by tenants or bills", ErrConflict, id)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete room: %w", mapDBError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to delete room %s: %w", id, ErrNotFound)
	}
	return nil
}

func setRoomStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status models.RoomStatus, at time.Time) error {
	_, err := tx.ExecContext(ctx, `UPDATE rooms SET status = $1, updated_at = $2 WHERE id = $3`, status, at, id)
	if err != nil {
		return fmt.Errorf("failed to set room status: %w", err)
	}
	return nil
}
