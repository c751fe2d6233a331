package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/livefire2015/ez-rent/src/models"
)

// TenantService manages tenants and their room assignments
type TenantService struct {
	db *sql.DB
}

// NewTenantService creates a new tenant service
func NewTenantService(db *sql.DB) *TenantService {
	return &TenantService{db: db}
}

const tenantColumns = `id, name, email, phone, emergency_contact, security_deposit,
	room_id, move_in_date, move_out_date, active, created_at, updated_at`

func scanTenant(row rowScanner) (*models.Tenant, error) {
	t := &models.Tenant{}
	err := row.Scan(
		&t.ID, &t.Name, &t.Email, &t.Phone, &t.EmergencyContact, &t.SecurityDeposit,
		&t.RoomID, &t.MoveInDate, &t.MoveOutDate, &t.Active, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// CreateTenant inserts a tenant. When RoomID is set the tenant moves in and
// the room becomes occupied; the room must be available.
func (s *TenantService) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	tenant.Active = true
	tenant.MoveOutDate = nil
	if tenant.MoveInDate.IsZero() {
		tenant.MoveInDate = time.Now().UTC().Truncate(24 * time.Hour)
	}
	if err := tenant.Validate(); err != nil {
		return invalid(err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	now := time.Now().UTC()
	if tenant.RoomID != nil {
		if err := claimRoom(ctx, tx, *tenant.RoomID, now); err != nil {
			return err
		}
	}

	tenant.ID = uuid.New()
	tenant.CreatedAt = now
	tenant.UpdatedAt = now

	query := `
		INSERT INTO tenants (` + tenantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = tx.ExecContext(ctx, query,
		tenant.ID, tenant.Name, tenant.Email, tenant.Phone, tenant.EmergencyContact, tenant.SecurityDeposit,
		tenant.RoomID, tenant.MoveInDate, tenant.MoveOutDate, tenant.Active, tenant.CreatedAt, tenant.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", mapDBError(err))
	}
	return tx.Commit()
}

// claimRoom locks the room and marks it occupied if it can accept a tenant
func claimRoom(ctx context.Context, tx *sql.Tx, roomID uuid.UUID, at time.Time) error {
	room, err := scanRoom(tx.QueryRowContext(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE id = $1 FOR UPDATE`, roomID))
	if err != nil {
		return fmt.Errorf("failed to get room %s: %w", roomID, mapDBError(err))
	}
	if !room.CanAcceptTenant() {
		return fmt.Errorf("%w: room %s is %s", ErrConflict, room.RoomNumber, room.Status)
	}
	return setRoomStatus(ctx, tx, roomID, models.RoomStatusOccupied, at)
}

// GetTenant retrieves a tenant by ID
func (s *TenantService) GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	t, err := scanTenant(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant %s: %w", id, mapDBError(err))
	}
	return t, nil
}

// ListTenants returns tenants ordered by name
func (s *TenantService) ListTenants(ctx context.Context, activeOnly bool) ([]*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE (NOT $1 OR active) ORDER BY name`
	rows, err := s.db.QueryContext(ctx, query, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*models.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// UpdateTenant updates contact details. Room changes go through MoveIn and MoveOut.
func (s *TenantService) UpdateTenant(ctx context.Context, tenant *models.Tenant) error {
	if err := tenant.Validate(); err != nil {
		return invalid(err)
	}
	tenant.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE tenants
		SET name = $1, email = $2, phone = $3, emergency_contact = $4,
		    security_deposit = $5, updated_at = $6
		WHERE id = $7
	`
	res, err := s.db.ExecContext(ctx, query,
		tenant.Name, tenant.Email, tenant.Phone, tenant.EmergencyContact,
		tenant.SecurityDeposit, tenant.UpdatedAt, tenant.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update tenant: %w", mapDBError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to update tenant %s: %w", tenant.ID, ErrNotFound)
	}
	return nil
}

// MoveIn assigns a roomless or moved-out tenant to an available room
func (s *TenantService) MoveIn(ctx context.Context, tenantID, roomID uuid.UUID, date time.Time) (*models.Tenant, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	tenant, err := scanTenant(tx.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1 FOR UPDATE`, tenantID))
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant %s: %w", tenantID, mapDBError(err))
	}
	if tenant.Active && tenant.RoomID != nil {
		return nil, fmt.Errorf("%w: tenant %s already occupies a room", ErrConflict, tenant.Name)
	}

	now := time.Now().UTC()
	if err := claimRoom(ctx, tx, roomID, now); err != nil {
		return nil, err
	}

	tenant.RoomID = &roomID
	tenant.MoveInDate = date
	tenant.MoveOutDate = nil
	tenant.Active = true
	tenant.UpdatedAt = now

	query := `
		UPDATE tenants
		SET room_id = $1, move_in_date = $2, move_out_date = NULL, active = TRUE, updated_at = $3
		WHERE id = $4
	`
	if _, err := tx.ExecContext(ctx, query, roomID, date, now, tenantID); err != nil {
		return nil, fmt.Errorf("failed to move tenant in: %w", mapDBError(err))
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit move-in: %w", err)
	}
	return tenant, nil
}

// MoveOut ends the tenancy: the tenant is deactivated and the room freed.
// The tenant keeps its room reference so the final period can still be
// billed (or regenerated) after the move.
func (s *TenantService) MoveOut(ctx context.Context, tenantID uuid.UUID, date time.Time) (*models.Tenant, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	tenant, err := scanTenant(tx.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1 FOR UPDATE`, tenantID))
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant %s: %w", tenantID, mapDBError(err))
	}
	if !tenant.Active || tenant.RoomID == nil {
		return nil, fmt.Errorf("%w: tenant %s has no active tenancy", ErrConflict, tenant.Name)
	}
	if date.Before(tenant.MoveInDate) {
		return nil, invalid(models.ErrMoveOutBeforeIn)
	}

	now := time.Now().UTC()
	if err := setRoomStatus(ctx, tx, *tenant.RoomID, models.RoomStatusAvailable, now); err != nil {
		return nil, err
	}

	query := `
		UPDATE tenants
		SET move_out_date = $1, active = FALSE, updated_at = $2
		WHERE id = $3
	`
	if _, err := tx.ExecContext(ctx, query, date, now, tenantID); err != nil {
		return nil, fmt.Errorf("failed to move tenant out: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit move-out: %w", err)
	}

	tenant.MoveOutDate = &date
	tenant.Active = false
	tenant.UpdatedAt = now
	return tenant, nil
}

// DeleteTenant removes a tenant with no billing history. Tenants with bills
// or payments must be moved out instead.
func (s *TenantService) DeleteTenant(ctx context.Context, id uuid.UUID) error {
	var hasHistory bool
	query := `
		SELECT EXISTS (SELECT 1 FROM bills WHERE tenant_id = $1)
		    OR EXISTS (SELECT 1 FROM payments WHERE tenant_id = $1)
		    OR EXISTS (SELECT 1 FROM charges WHERE tenant_id = $1)
	`
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&hasHistory); err != nil {
		return fmt.Errorf("failed to check tenant history: %w", err)
	}
	if hasHistory {
		return fmt.Errorf("%w: tenant %s has billing history, move out instead", ErrConflict, id)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	var roomID *uuid.UUID
	err = tx.QueryRowContext(ctx, `DELETE FROM tenants WHERE id = $1 RETURNING CASE WHEN active THEN room_id END`, id).Scan(&roomID)
	if err != nil {
		return fmt.Errorf("failed to delete tenant %s: %w", id, mapDBError(err))
	}
	if roomID != nil {
		if err := setRoomStatus(ctx, tx, *roomID, models.RoomStatusAvailable, time.Now().UTC()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

const assignmentQuery = `
	SELECT t.id, t.name, t.email, t.phone, t.emergency_contact, t.security_deposit,
	       t.room_id, t.move_in_date, t.move_out_date, t.active, t.created_at, t.updated_at,
	       r.id, r.room_number, r.floor, r.monthly_rent, r.status, r.electric_meter,
	       r.description, r.created_at, r.updated_at
	FROM tenants t
	JOIN rooms r ON r.id = t.room_id
	WHERE t.move_in_date <= $1
	  AND (t.move_out_date IS NULL OR t.move_out_date >= $2)
`

func scanAssignment(row rowScanner) (*models.Assignment, error) {
	a := &models.Assignment{}
	t, r := &a.Tenant, &a.Room
	err := row.Scan(
		&t.ID, &t.Name, &t.Email, &t.Phone, &t.EmergencyContact, &t.SecurityDeposit,
		&t.RoomID, &t.MoveInDate, &t.MoveOutDate, &t.Active, &t.CreatedAt, &t.UpdatedAt,
		&r.ID, &r.RoomNumber, &r.Floor, &r.MonthlyRent, &r.Status, &r.ElectricMeter,
		&r.Description, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Assignment returns the tenant's room pairing for a period
func (s *TenantService) Assignment(ctx context.Context, tenantID uuid.UUID, period models.Period) (*models.Assignment, error) {
	query := assignmentQuery + ` AND t.id = $3`
	a, err := scanAssignment(s.db.QueryRowContext(ctx, query, period.End(), period.Start(), tenantID))
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment for tenant %s in %s: %w", tenantID, period, mapDBError(err))
	}
	return a, nil
}

// ActiveAssignments returns every tenant/room pairing active in a period, ordered by room number
func (s *TenantService) ActiveAssignments(ctx context.Context, period models.Period) ([]models.Assignment, error) {
	query := assignmentQuery + ` ORDER BY r.room_number, t.name`
	rows, err := s.db.QueryContext(ctx, query, period.End(), period.Start())
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []models.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, *a)
	}
	return assignments, rows.Err()
}
