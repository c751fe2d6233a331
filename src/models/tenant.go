package models

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tenant represents a person renting a room
type Tenant struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	Name             string          `json:"name" db:"name"`
	Email            string          `json:"email" db:"email"` // Unique
	Phone            string          `json:"phone" db:"phone"`
	EmergencyContact string          `json:"emergency_contact" db:"emergency_contact"`
	SecurityDeposit  decimal.Decimal `json:"security_deposit" db:"security_deposit"`
	RoomID           *uuid.UUID      `json:"room_id,omitempty" db:"room_id"` // Last room, kept after move-out
	MoveInDate       time.Time       `json:"move_in_date" db:"move_in_date"`
	MoveOutDate      *time.Time      `json:"move_out_date,omitempty" db:"move_out_date"`
	Active           bool            `json:"active" db:"active"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// Validation errors
var (
	ErrTenantNameRequired = errors.New("tenant name is required")
	ErrInvalidEmail       = errors.New("tenant email is invalid")
	ErrInvalidDeposit     = errors.New("security deposit must not be negative")
	ErrMoveOutBeforeIn    = errors.New("move-out date is before move-in date")
)

// Validate validates the tenant fields
func (t *Tenant) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrTenantNameRequired
	}
	if _, err := mail.ParseAddress(t.Email); err != nil {
		return ErrInvalidEmail
	}
	if t.SecurityDeposit.IsNegative() {
		return ErrInvalidDeposit
	}
	if t.MoveOutDate != nil && t.MoveOutDate.Before(t.MoveInDate) {
		return ErrMoveOutBeforeIn
	}
	return nil
}

// OccupiesDuring reports whether the tenant lived in a room at any point of
// the period. A moved-out tenant still occupies the month they left in.
func (t *Tenant) OccupiesDuring(p Period) bool {
	if t.RoomID == nil {
		return false
	}
	if t.MoveInDate.After(p.End()) {
		return false
	}
	if t.MoveOutDate != nil && t.MoveOutDate.Before(p.Start()) {
		return false
	}
	return true
}

// Assignment is an active tenant/room pairing for a billing period
type Assignment struct {
	Tenant Tenant `json:"tenant"`
	Room   Room   `json:"room"`
}
