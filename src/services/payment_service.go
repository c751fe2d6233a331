package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/livefire2015/ez-rent/src/models"
)

// PaymentService records tenant payments and applies them to bills
type PaymentService struct {
	db *sql.DB
}

// NewPaymentService creates a new payment service
func NewPaymentService(db *sql.DB) *PaymentService {
	return &PaymentService{db: db}
}

// PaymentResult contains the recorded payment and the bill it was applied to
type PaymentResult struct {
	Payment *models.Payment `json:"payment"`
	Bill    *models.Bill    `json:"bill,omitempty"` // Nil when the period has not been billed yet
}

const paymentColumns = `id, tenant_id, bill_id, period_month, period_year, amount, payment_date,
	method, reference, notes, created_at`

func scanPayment(row rowScanner) (*models.Payment, error) {
	p := &models.Payment{}
	err := row.Scan(
		&p.ID, &p.TenantID, &p.BillID, &p.Period.Month, &p.Period.Year, &p.Amount, &p.PaymentDate,
		&p.Method, &p.Reference, &p.Notes, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// RecordPayment stores a payment for the tenant's period. If the period is
// already billed the bill's paid amount, carry forward and status are updated
// in the same transaction.
func (s *PaymentService) RecordPayment(ctx context.Context, payment *models.Payment) (*PaymentResult, error) {
	if payment.PaymentDate.IsZero() {
		payment.PaymentDate = time.Now().UTC().Truncate(24 * time.Hour)
	}
	if err := payment.Validate(); err != nil {
		return nil, invalid(err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM tenants WHERE id = $1)`, payment.TenantID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check tenant: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("failed to record payment for tenant %s: %w", payment.TenantID, ErrNotFound)
	}

	bill, err := scanBill(tx.QueryRowContext(ctx,
		`SELECT `+billColumns+` FROM bills WHERE tenant_id = $1 AND period_year = $2 AND period_month = $3 FOR UPDATE`,
		payment.TenantID, payment.Period.Year, payment.Period.Month,
	))
	if errors.Is(err, sql.ErrNoRows) {
		bill, err = nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}

	now := time.Now().UTC()
	payment.ID = uuid.New()
	payment.CreatedAt = now
	payment.BillID = nil
	if bill != nil {
		payment.BillID = &bill.ID
	}

	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = tx.ExecContext(ctx, query,
		payment.ID, payment.TenantID, payment.BillID, payment.Period.Month, payment.Period.Year,
		payment.Amount, payment.PaymentDate, payment.Method, payment.Reference, payment.Notes, payment.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert payment: %w", mapDBError(err))
	}

	if bill != nil {
		bill.ApplyPayment(payment.Amount)
		bill.Version++
		bill.UpdatedAt = now

		query := `
			UPDATE bills
			SET amount_paid = $1, carry_forward = $2, status = $3, version = $4, updated_at = $5
			WHERE id = $6
		`
		_, err := tx.ExecContext(ctx, query,
			bill.AmountPaid, bill.CarryForward, bill.Status, bill.Version, bill.UpdatedAt, bill.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to apply payment to bill: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit payment: %w", err)
	}
	return &PaymentResult{Payment: payment, Bill: bill}, nil
}

// ListPayments returns payments newest first, optionally for one tenant
func (s *PaymentService) ListPayments(ctx context.Context, tenantID *uuid.UUID) ([]models.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE ($1::uuid IS NULL OR tenant_id = $1)
		ORDER BY payment_date DESC, created_at DESC
	`
	return s.queryPayments(ctx, query, tenantID)
}

// PaymentsForPeriod returns a tenant's payments for one period
func (s *PaymentService) PaymentsForPeriod(ctx context.Context, tenantID uuid.UUID, period models.Period) ([]models.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE tenant_id = $1 AND period_year = $2 AND period_month = $3
		ORDER BY payment_date, created_at
	`
	return s.queryPayments(ctx, query, tenantID, period.Year, period.Month)
}

func (s *PaymentService) queryPayments(ctx context.Context, query string, args ...any) ([]models.Payment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}
