package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/livefire2015/ez-rent/src/models"
)

// ChargeService records ad-hoc charges against tenants
type ChargeService struct {
	db *sql.DB
}

// NewChargeService creates a new charge service
func NewChargeService(db *sql.DB) *ChargeService {
	return &ChargeService{db: db}
}

const chargeColumns = `id, tenant_id, room_id, period_month, period_year, charge_type, amount,
	description, maintenance_request_id, source_bill_id, created_at`

func scanCharge(row rowScanner) (*models.Charge, error) {
	c := &models.Charge{}
	err := row.Scan(
		&c.ID, &c.TenantID, &c.RoomID, &c.Period.Month, &c.Period.Year, &c.Type, &c.Amount,
		&c.Description, &c.MaintenanceRequestID, &c.SourceBillID, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func insertCharge(ctx context.Context, db execer, c *models.Charge) error {
	c.ID = uuid.New()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO charges (` + chargeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := db.ExecContext(ctx, query,
		c.ID, c.TenantID, c.RoomID, c.Period.Month, c.Period.Year, c.Type, c.Amount,
		c.Description, c.MaintenanceRequestID, c.SourceBillID, c.CreatedAt,
	)
	return err
}

// CreateCharge validates and records a charge
func (s *ChargeService) CreateCharge(ctx context.Context, charge *models.Charge) error {
	if err := charge.Validate(); err != nil {
		return invalid(err)
	}
	if err := insertCharge(ctx, s.db, charge); err != nil {
		return fmt.Errorf("failed to create charge: %w", mapDBError(err))
	}
	return nil
}

// ListCharges returns charges newest first. Zero filters are ignored.
func (s *ChargeService) ListCharges(ctx context.Context, tenantID *uuid.UUID, period *models.Period) ([]models.Charge, error) {
	var month, year int
	if period != nil {
		month, year = period.Month, period.Year
	}
	query := `
		SELECT ` + chargeColumns + `
		FROM charges
		WHERE ($1::uuid IS NULL OR tenant_id = $1)
		  AND ($2 = 0 OR (period_year = $2 AND period_month = $3))
		ORDER BY created_at DESC
	`
	return s.queryCharges(ctx, query, tenantID, year, month)
}

// ChargesForPeriod returns a tenant's charges for one period in creation order
func (s *ChargeService) ChargesForPeriod(ctx context.Context, tenantID uuid.UUID, period models.Period) ([]models.Charge, error) {
	query := `
		SELECT ` + chargeColumns + `
		FROM charges
		WHERE tenant_id = $1 AND period_year = $2 AND period_month = $3
		ORDER BY created_at, id
	`
	return s.queryCharges(ctx, query, tenantID, period.Year, period.Month)
}

func (s *ChargeService) queryCharges(ctx context.Context, query string, args ...any) ([]models.Charge, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query charges: %w", err)
	}
	defer rows.Close()

	var charges []models.Charge
	for rows.Next() {
		c, err := scanCharge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan charge: %w", err)
		}
		charges = append(charges, *c)
	}
	return charges, rows.Err()
}
