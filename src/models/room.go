package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RoomStatus represents the occupancy status of a room
type RoomStatus string

const (
	RoomStatusAvailable   RoomStatus = "available"
	RoomStatusOccupied    RoomStatus = "occupied"
	RoomStatusMaintenance RoomStatus = "maintenance"
)

// Room represents a rentable unit with its own electric meter
type Room struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	RoomNumber    string          `json:"room_number" db:"room_number"` // Unique
	Floor         int             `json:"floor" db:"floor"`
	MonthlyRent   decimal.Decimal `json:"monthly_rent" db:"monthly_rent"`
	Status        RoomStatus      `json:"status" db:"status"`
	ElectricMeter string          `json:"electric_meter" db:"electric_meter"`
	Description   string          `json:"description" db:"description"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// Validation errors
var (
	ErrRoomNumberRequired = errors.New("room number is required")
	ErrInvalidRent        = errors.New("monthly rent must not be negative")
	ErrInvalidRoomStatus  = errors.New("room status must be available, occupied or maintenance")
)

// Validate validates the room fields
func (r *Room) Validate() error {
	if strings.TrimSpace(r.RoomNumber) == "" {
		return ErrRoomNumberRequired
	}
	if r.MonthlyRent.IsNegative() {
		return ErrInvalidRent
	}
	if !r.Status.IsValid() {
		return ErrInvalidRoomStatus
	}
	return nil
}

// IsValid reports whether the status is a known value
func (s RoomStatus) IsValid() bool {
	switch s {
	case RoomStatusAvailable, RoomStatusOccupied, RoomStatusMaintenance:
		return true
	}
	return false
}

// CanAcceptTenant reports whether a new tenant may move in
func (r *Room) CanAcceptTenant() bool {
	return r.Status == RoomStatusAvailable
}
