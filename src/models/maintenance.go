package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaintenanceStatus represents the status of a maintenance request
type MaintenanceStatus string

const (
	MaintenanceStatusPending    MaintenanceStatus = "pending"     // Reported, not yet started
	MaintenanceStatusInProgress MaintenanceStatus = "in_progress" // Work underway
	MaintenanceStatusCompleted  MaintenanceStatus = "completed"   // Work done, cost recorded
	MaintenanceStatusCancelled  MaintenanceStatus = "cancelled"   // Dropped before completion
)

// MaintenancePriority represents how urgent a request is
type MaintenancePriority string

const (
	MaintenancePriorityLow    MaintenancePriority = "low"
	MaintenancePriorityMedium MaintenancePriority = "medium"
	MaintenancePriorityHigh   MaintenancePriority = "high"
	MaintenancePriorityUrgent MaintenancePriority = "urgent"
)

// MaintenanceRequest represents a repair or upkeep job for a room
type MaintenanceRequest struct {
	ID            uuid.UUID           `json:"id" db:"id"`
	RoomID        uuid.UUID           `json:"room_id" db:"room_id"`
	TenantID      *uuid.UUID          `json:"tenant_id,omitempty" db:"tenant_id"`
	Title         string              `json:"title" db:"title"`
	Description   string              `json:"description" db:"description"`
	Priority      MaintenancePriority `json:"priority" db:"priority"`
	Status        MaintenanceStatus   `json:"status" db:"status"`
	EstimatedCost decimal.Decimal     `json:"estimated_cost" db:"estimated_cost"`
	ActualCost    *decimal.Decimal    `json:"actual_cost,omitempty" db:"actual_cost"`
	ChargeTenant  bool                `json:"charge_tenant" db:"charge_tenant"`
	RequestedAt   time.Time           `json:"requested_at" db:"requested_at"`
	CompletedAt   *time.Time          `json:"completed_at,omitempty" db:"completed_at"`
	CancelledAt   *time.Time          `json:"cancelled_at,omitempty" db:"cancelled_at"`
	UpdatedAt     time.Time           `json:"updated_at" db:"updated_at"`
}

// MaintenanceStatusTransition represents a status change in a request's history
type MaintenanceStatusTransition struct {
	ID           uuid.UUID         `json:"id" db:"id"`
	RequestID    uuid.UUID         `json:"request_id" db:"request_id"`
	FromStatus   MaintenanceStatus `json:"from_status" db:"from_status"`
	ToStatus     MaintenanceStatus `json:"to_status" db:"to_status"`
	Note         string            `json:"note,omitempty" db:"note"`
	TransitionAt time.Time         `json:"transition_at" db:"transition_at"`
}

// Validation errors
var (
	ErrTitleRequired        = errors.New("maintenance title is required")
	ErrInvalidPriority      = errors.New("unknown maintenance priority")
	ErrInvalidCost          = errors.New("cost must not be negative")
	ErrInvalidTransition    = errors.New("invalid maintenance status transition")
	ErrCompletionNeedsStamp = errors.New("completion requires a completion date")
)

var maintenanceTransitions = map[MaintenanceStatus][]MaintenanceStatus{
	MaintenanceStatusPending: {
		MaintenanceStatusInProgress,
		MaintenanceStatusCancelled,
	},
	MaintenanceStatusInProgress: {
		MaintenanceStatusCompleted,
		MaintenanceStatusCancelled,
	},
	MaintenanceStatusCompleted: {}, // Terminal state
	MaintenanceStatusCancelled: {}, // Terminal state
}

// Validate validates the request fields
func (m *MaintenanceRequest) Validate() error {
	if strings.TrimSpace(m.Title) == "" {
		return ErrTitleRequired
	}
	switch m.Priority {
	case MaintenancePriorityLow, MaintenancePriorityMedium, MaintenancePriorityHigh, MaintenancePriorityUrgent:
	default:
		return ErrInvalidPriority
	}
	if m.EstimatedCost.IsNegative() {
		return ErrInvalidCost
	}
	return nil
}

// CanTransitionTo checks if the request can move to a new status
func (m *MaintenanceRequest) CanTransitionTo(newStatus MaintenanceStatus) bool {
	allowed, exists := maintenanceTransitions[m.Status]
	if !exists {
		return false
	}

	for _, s := range allowed {
		if s == newStatus {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transition is permitted
func (m *MaintenanceRequest) IsTerminal() bool {
	return m.Status == MaintenanceStatusCompleted || m.Status == MaintenanceStatusCancelled
}

// Transition moves the request to newStatus and returns the history record.
// Completing requires a completion time; actualCost may be nil for free work.
func (m *MaintenanceRequest) Transition(
	newStatus MaintenanceStatus,
	at time.Time,
	actualCost *decimal.Decimal,
	note string,
) (*MaintenanceStatusTransition, error) {
	if !m.CanTransitionTo(newStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.Status, newStatus)
	}

	switch newStatus {
	case MaintenanceStatusCompleted:
		if at.IsZero() {
			return nil, ErrCompletionNeedsStamp
		}
		if actualCost != nil && actualCost.IsNegative() {
			return nil, ErrInvalidCost
		}
		m.ActualCost = actualCost
		completed := at
		m.CompletedAt = &completed
	case MaintenanceStatusCancelled:
		cancelled := at
		m.CancelledAt = &cancelled
	}

	transition := &MaintenanceStatusTransition{
		ID:           uuid.New(),
		RequestID:    m.ID,
		FromStatus:   m.Status,
		ToStatus:     newStatus,
		Note:         note,
		TransitionAt: at,
	}

	m.Status = newStatus
	m.UpdatedAt = at
	return transition, nil
}

// TenantCharge returns the amount to bill the tenant once completed, zero otherwise
func (m *MaintenanceRequest) TenantCharge() decimal.Decimal {
	if m.Status != MaintenanceStatusCompleted || !m.ChargeTenant || m.ActualCost == nil {
		return decimal.Zero
	}
	return *m.ActualCost
}
