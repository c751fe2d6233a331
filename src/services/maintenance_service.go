package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/livefire2015/ez-rent/src/models"
	"github.com/shopspring/decimal"
)

// ErrChargeNeedsTenant is returned when a chargeable request names no tenant
var ErrChargeNeedsTenant = errors.New("charging a maintenance request requires a tenant")

// MaintenanceService tracks maintenance requests and charges completed work
type MaintenanceService struct {
	db *sql.DB
}

// NewMaintenanceService creates a new maintenance service
func NewMaintenanceService(db *sql.DB) *MaintenanceService {
	return &MaintenanceService{db: db}
}

// TransitionRequest contains parameters for a status change
type TransitionRequest struct {
	Status     models.MaintenanceStatus `json:"status"`
	ActualCost *decimal.Decimal         `json:"actual_cost,omitempty"`
	Note       string                   `json:"note,omitempty"`
	At         time.Time                `json:"at,omitempty"`
}

// TransitionResult contains the updated request, its history record and any tenant charge
type TransitionResult struct {
	Request    *models.MaintenanceRequest          `json:"request"`
	Transition *models.MaintenanceStatusTransition `json:"transition"`
	Charge     *models.Charge                      `json:"charge,omitempty"`
}

const maintenanceColumns = `id, room_id, tenant_id, title, description, priority, status,
	estimated_cost, actual_cost, charge_tenant, requested_at, completed_at, cancelled_at, updated_at`

func scanMaintenance(row rowScanner) (*models.MaintenanceRequest, error) {
	m := &models.MaintenanceRequest{}
	var actual decimal.NullDecimal
	err := row.Scan(
		&m.ID, &m.RoomID, &m.TenantID, &m.Title, &m.Description, &m.Priority, &m.Status,
		&m.EstimatedCost, &actual, &m.ChargeTenant, &m.RequestedAt, &m.CompletedAt, &m.CancelledAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if actual.Valid {
		m.ActualCost = &actual.Decimal
	}
	return m, nil
}

// CreateRequest opens a new pending request
func (s *MaintenanceService) CreateRequest(ctx context.Context, req *models.MaintenanceRequest) error {
	if req.Priority == "" {
		req.Priority = models.MaintenancePriorityMedium
	}
	if err := req.Validate(); err != nil {
		return invalid(err)
	}
	if req.ChargeTenant && req.TenantID == nil {
		return invalid(ErrChargeNeedsTenant)
	}

	now := time.Now().UTC()
	req.ID = uuid.New()
	req.Status = models.MaintenanceStatusPending
	req.ActualCost = nil
	req.CompletedAt = nil
	req.CancelledAt = nil
	req.RequestedAt = now
	req.UpdatedAt = now

	query := `
		INSERT INTO maintenance_requests (` + maintenanceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := s.db.ExecContext(ctx, query,
		req.ID, req.RoomID, req.TenantID, req.Title, req.Description, req.Priority, req.Status,
		req.EstimatedCost, nil, req.ChargeTenant, req.RequestedAt, nil, nil, req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create maintenance request: %w", mapDBError(err))
	}
	return nil
}

// GetRequest retrieves a request by ID
func (s *MaintenanceService) GetRequest(ctx context.Context, id uuid.UUID) (*models.MaintenanceRequest, error) {
	query := `SELECT ` + maintenanceColumns + ` FROM maintenance_requests WHERE id = $1`
	req, err := scanMaintenance(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get maintenance request %s: %w", id, mapDBError(err))
	}
	return req, nil
}

// ListRequests returns requests newest first, optionally filtered by status
func (s *MaintenanceService) ListRequests(ctx context.Context, status models.MaintenanceStatus) ([]*models.MaintenanceRequest, error) {
	query := `
		SELECT ` + maintenanceColumns + `
		FROM maintenance_requests
		WHERE ($1 = '' OR status = $1)
		ORDER BY requested_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list maintenance requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.MaintenanceRequest
	for rows.Next() {
		req, err := scanMaintenance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan maintenance request: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// GetHistory returns the status transitions of a request, oldest first
func (s *MaintenanceService) GetHistory(ctx context.Context, requestID uuid.UUID) ([]models.MaintenanceStatusTransition, error) {
	query := `
		SELECT id, request_id, from_status, to_status, note, transition_at
		FROM maintenance_status_transitions
		WHERE request_id = $1
		ORDER BY transition_at
	`
	rows, err := s.db.QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get maintenance history: %w", err)
	}
	defer rows.Close()

	var history []models.MaintenanceStatusTransition
	for rows.Next() {
		var t models.MaintenanceStatusTransition
		if err := rows.Scan(&t.ID, &t.RequestID, &t.FromStatus, &t.ToStatus, &t.Note, &t.TransitionAt); err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		history = append(history, t)
	}
	return history, rows.Err()
}

// ChangeStatus moves a request to a new status and records the change.
// Completing a chargeable request with a positive cost records a maintenance
// charge in the period of completion.
func (s *MaintenanceService) ChangeStatus(ctx context.Context, id uuid.UUID, req TransitionRequest) (*TransitionResult, error) {
	if req.At.IsZero() {
		req.At = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	mr, err := scanMaintenance(tx.QueryRowContext(ctx,
		`SELECT `+maintenanceColumns+` FROM maintenance_requests WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get maintenance request %s: %w", id, mapDBError(err))
	}

	transition, err := mr.Transition(req.Status, req.At, req.ActualCost, req.Note)
	if errors.Is(err, models.ErrInvalidCost) {
		return nil, invalid(err)
	}
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE maintenance_requests
		SET status = $1, actual_cost = $2, completed_at = $3, cancelled_at = $4, updated_at = $5
		WHERE id = $6
	`
	var actual decimal.NullDecimal
	if mr.ActualCost != nil {
		actual = decimal.NewNullDecimal(*mr.ActualCost)
	}
	if _, err := tx.ExecContext(ctx, query, mr.Status, actual, mr.CompletedAt, mr.CancelledAt, mr.UpdatedAt, mr.ID); err != nil {
		return nil, fmt.Errorf("failed to update maintenance request: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO maintenance_status_transitions (id, request_id, from_status, to_status, note, transition_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, transition.ID, transition.RequestID, transition.FromStatus, transition.ToStatus, transition.Note, transition.TransitionAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record transition: %w", err)
	}

	result := &TransitionResult{Request: mr, Transition: transition}

	if amount := mr.TenantCharge(); amount.IsPositive() && mr.TenantID != nil {
		roomID := mr.RoomID
		requestID := mr.ID
		charge := &models.Charge{
			TenantID:             *mr.TenantID,
			RoomID:               &roomID,
			Period:               models.PeriodOf(*mr.CompletedAt),
			Type:                 models.ChargeTypeMaintenance,
			Amount:               amount,
			Description:          "Maintenance: " + mr.Title,
			MaintenanceRequestID: &requestID,
			CreatedAt:            req.At,
		}
		if err := insertCharge(ctx, tx, charge); err != nil {
			return nil, fmt.Errorf("failed to record maintenance charge: %w", err)
		}
		result.Charge = charge
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transition: %w", err)
	}
	return result, nil
}
