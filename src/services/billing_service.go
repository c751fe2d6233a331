package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/livefire2015/ez-rent/src/billing"
	"github.com/livefire2015/ez-rent/src/events"
	"github.com/livefire2015/ez-rent/src/metrics"
	"github.com/livefire2015/ez-rent/src/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BillingService generates, stores and queries bills. It feeds the billing
// engine from the database and persists what the engine computes.
type BillingService struct {
	db        *sql.DB
	tenants   *TenantService
	readings  *MeterReadingService
	charges   *ChargeService
	payments  *PaymentService
	settings  *SettingsService
	publisher events.Publisher
	logger    *zap.Logger
	defaults  map[string]string
	now       func() time.Time
}

// NewBillingService creates a new billing service
func NewBillingService(db *sql.DB, publisher events.Publisher, logger *zap.Logger) *BillingService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	settings := NewSettingsService(db)
	return &BillingService{
		db:        db,
		tenants:   NewTenantService(db),
		readings:  NewMeterReadingService(db, settings),
		charges:   NewChargeService(db),
		payments:  NewPaymentService(db),
		settings:  settings,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithDefaults fills settings missing from the database with defaults
// instead of failing the affected bills
func (s *BillingService) WithDefaults(defaults map[string]string) *BillingService {
	s.defaults = defaults
	return s
}

// WithClock sets the clock used for generation timestamps
func (s *BillingService) WithClock(now func() time.Time) *BillingService {
	s.now = now
	return s
}

// GenerateRequest selects what to bill. A nil TenantID bills every active tenant.
type GenerateRequest struct {
	Period   models.Period `json:"period"`
	TenantID *uuid.UUID    `json:"tenant_id,omitempty"`
}

// MeterReadings implements billing.DataSource
func (s *BillingService) MeterReadings(ctx context.Context, roomID uuid.UUID, period models.Period) (*models.MeterReading, *models.MeterReading, error) {
	return s.readings.ReadingsForPeriod(ctx, roomID, period)
}

// Charges implements billing.DataSource
func (s *BillingService) Charges(ctx context.Context, tenantID uuid.UUID, period models.Period) ([]models.Charge, error) {
	return s.charges.ChargesForPeriod(ctx, tenantID, period)
}

// Payments implements billing.DataSource
func (s *BillingService) Payments(ctx context.Context, tenantID uuid.UUID, period models.Period) ([]models.Payment, error) {
	return s.payments.PaymentsForPeriod(ctx, tenantID, period)
}

// PriorBalance implements billing.DataSource. The balance comes from the
// latest bill before the period, so a month that failed to generate does not
// drop the debt carried into it.
func (s *BillingService) PriorBalance(ctx context.Context, tenantID uuid.UUID, period models.Period) (decimal.Decimal, error) {
	var carry decimal.Decimal
	query := `
		SELECT carry_forward FROM bills
		WHERE tenant_id = $1 AND (period_year, period_month) < ($2, $3)
		ORDER BY period_year DESC, period_month DESC
		LIMIT 1
	`
	err := s.db.QueryRowContext(ctx, query, tenantID, period.Year, period.Month).Scan(&carry)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get prior balance: %w", err)
	}
	return carry, nil
}

// Settings returns the snapshot used for a run, with configured defaults applied
func (s *BillingService) Settings(ctx context.Context) (models.Settings, error) {
	snapshot, err := s.settings.Snapshot(ctx)
	if err != nil {
		return models.Settings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	if s.defaults != nil {
		snapshot = snapshot.WithDefaults(s.defaults)
	}
	return snapshot, nil
}

// GenerateBills computes and stores bills for a period. Regenerating a
// period overwrites the stored bills and bumps their version. Per-tenant
// failures are reported in the result; an error is returned only when the
// run could not start.
func (s *BillingService) GenerateBills(ctx context.Context, req GenerateRequest) (*billing.BulkResult, error) {
	start := time.Now()
	if err := req.Period.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", billing.ErrInvalidInput, err)
	}

	settings, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}

	mode := "bulk"
	var assignments []models.Assignment
	if req.TenantID != nil {
		mode = "single"
		a, err := s.tenants.Assignment(ctx, *req.TenantID, req.Period)
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: tenant %s has no active room in %s", billing.ErrInvalidInput, *req.TenantID, req.Period)
		}
		if err != nil {
			return nil, err
		}
		assignments = []models.Assignment{*a}
	} else {
		assignments, err = s.tenants.ActiveAssignments(ctx, req.Period)
		if err != nil {
			return nil, err
		}
	}

	engine := billing.NewEngine(s).WithClock(s.now)
	result := engine.GenerateBulkBills(ctx, req.Period, assignments, settings)

	for i := range result.Results {
		res := &result.Results[i]
		if !res.OK() {
			continue
		}
		saved, err := s.saveBill(ctx, res.Bill)
		if err != nil {
			res.Bill = nil
			res.Err = err
			res.Kind = billing.FailureLookup
			res.Error = err.Error()
			continue
		}
		res.Bill = saved
	}

	s.report(ctx, mode, result, time.Since(start))
	return result, nil
}

func (s *BillingService) report(ctx context.Context, mode string, result *billing.BulkResult, dur time.Duration) {
	failures := result.Failures()
	kinds := make([]string, 0, len(failures))
	for _, f := range failures {
		kinds = append(kinds, string(f.Kind))
		s.logger.Warn("Bill generation failed",
			zap.String("period", result.Period.String()),
			zap.String("tenant_id", f.TenantID.String()),
			zap.String("kind", string(f.Kind)),
			zap.Error(f.Err),
		)
	}
	generated := len(result.Results) - len(failures)
	metrics.ObserveBillingRun(mode, generated, kinds, dur)

	s.logger.Info("Bill generation finished",
		zap.String("period", result.Period.String()),
		zap.String("mode", mode),
		zap.Int("generated", generated),
		zap.Int("failed", len(failures)),
		zap.Duration("duration", dur),
	)

	if err := s.publisher.Publish(ctx, events.FromBulkResult(result, s.now())...); err != nil {
		s.logger.Error("Failed to publish bill events", zap.Error(err))
	}
}

// saveBill upserts the bill for its tenant and period and marks the reading billed
func (s *BillingService) saveBill(ctx context.Context, bill *models.Bill) (*models.Bill, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	saved := *bill

	// RecordPayment locks the same row, so payments committed while the
	// inputs were being read are visible to the sum below.
	_, err = tx.ExecContext(ctx, `
		SELECT id FROM bills
		WHERE tenant_id = $1 AND period_year = $2 AND period_month = $3
		FOR UPDATE
	`, saved.TenantID, saved.Period.Year, saved.Period.Month)
	if err != nil {
		return nil, fmt.Errorf("failed to lock bill: %w", err)
	}

	var paid decimal.Decimal
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM payments
		WHERE tenant_id = $1 AND period_year = $2 AND period_month = $3
	`, saved.TenantID, saved.Period.Year, saved.Period.Month).Scan(&paid)
	if err != nil {
		return nil, fmt.Errorf("failed to sum payments: %w", err)
	}
	if !paid.Equal(saved.AmountPaid) {
		saved.ApplyPayment(paid.Sub(saved.AmountPaid))
	}

	query := `
		INSERT INTO bills (` + billColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, 1, $20, $21)
		ON CONFLICT (tenant_id, period_year, period_month) DO UPDATE
		SET room_id = EXCLUDED.room_id,
		    meter_reading_id = EXCLUDED.meter_reading_id,
		    previous_reading = EXCLUDED.previous_reading,
		    current_reading = EXCLUDED.current_reading,
		    units_consumed = EXCLUDED.units_consumed,
		    unit_rate = EXCLUDED.unit_rate,
		    rent_charge = EXCLUDED.rent_charge,
		    electricity_charge = EXCLUDED.electricity_charge,
		    misc_charge = EXCLUDED.misc_charge,
		    balance_forward = EXCLUDED.balance_forward,
		    total_due = EXCLUDED.total_due,
		    amount_paid = EXCLUDED.amount_paid,
		    carry_forward = EXCLUDED.carry_forward,
		    due_date = EXCLUDED.due_date,
		    status = EXCLUDED.status,
		    version = bills.version + 1,
		    generated_at = EXCLUDED.generated_at,
		    updated_at = EXCLUDED.updated_at
		RETURNING id, version
	`
	err = tx.QueryRowContext(ctx, query,
		uuid.New(), saved.TenantID, saved.RoomID, saved.MeterReadingID, saved.Period.Month, saved.Period.Year,
		saved.PreviousReading, saved.CurrentReading, saved.UnitsConsumed, saved.UnitRate,
		saved.RentCharge, saved.ElectricityCharge, saved.MiscCharge, saved.BalanceForward,
		saved.TotalDue, saved.AmountPaid, saved.CarryForward, saved.DueDate, saved.Status,
		saved.GeneratedAt, saved.UpdatedAt,
	).Scan(&saved.ID, &saved.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to save bill: %w", err)
	}

	if saved.MeterReadingID != nil {
		if err := markReadingBilled(ctx, tx, *saved.MeterReadingID, saved.UpdatedAt); err != nil {
			return nil, err
		}
	}

	// Payments recorded before the bill existed
	_, err = tx.ExecContext(ctx, `
		UPDATE payments SET bill_id = $1
		WHERE tenant_id = $2 AND period_year = $3 AND period_month = $4 AND bill_id IS NULL
	`, saved.ID, saved.TenantID, saved.Period.Year, saved.Period.Month)
	if err != nil {
		return nil, fmt.Errorf("failed to link payments: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit bill: %w", err)
	}
	return &saved, nil
}

const billColumns = `id, tenant_id, room_id, meter_reading_id, period_month, period_year,
	previous_reading, current_reading, units_consumed, unit_rate,
	rent_charge, electricity_charge, misc_charge, balance_forward,
	total_due, amount_paid, carry_forward, due_date, status, version, generated_at, updated_at`

func scanBill(row rowScanner) (*models.Bill, error) {
	b := &models.Bill{}
	err := row.Scan(
		&b.ID, &b.TenantID, &b.RoomID, &b.MeterReadingID, &b.Period.Month, &b.Period.Year,
		&b.PreviousReading, &b.CurrentReading, &b.UnitsConsumed, &b.UnitRate,
		&b.RentCharge, &b.ElectricityCharge, &b.MiscCharge, &b.BalanceForward,
		&b.TotalDue, &b.AmountPaid, &b.CarryForward, &b.DueDate, &b.Status, &b.Version, &b.GeneratedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// GetBill retrieves a bill by ID
func (s *BillingService) GetBill(ctx context.Context, id uuid.UUID) (*models.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills WHERE id = $1`
	bill, err := scanBill(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get bill %s: %w", id, mapDBError(err))
	}
	return bill, nil
}

// ListBills returns the bills of a period ordered by room number
func (s *BillingService) ListBills(ctx context.Context, period models.Period) ([]*models.Bill, error) {
	query := `
		SELECT ` + prefixed("b", billColumns) + `
		FROM bills b
		JOIN rooms r ON r.id = b.room_id
		WHERE b.period_year = $1 AND b.period_month = $2
		ORDER BY r.room_number, b.tenant_id
	`
	rows, err := s.db.QueryContext(ctx, query, period.Year, period.Month)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	defer rows.Close()

	var bills []*models.Bill
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills = append(bills, bill)
	}
	return bills, rows.Err()
}

// GetBillingHistory returns a tenant's bills, newest first
func (s *BillingService) GetBillingHistory(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.BillSummary, error) {
	if limit <= 0 {
		limit = 12
	}
	query := `
		SELECT ` + billColumns + `
		FROM bills
		WHERE tenant_id = $1
		ORDER BY period_year DESC, period_month DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get billing history: %w", err)
	}
	defer rows.Close()

	asOf := s.now()
	var summaries []models.BillSummary
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		summaries = append(summaries, bill.ToSummary(asOf))
	}
	return summaries, rows.Err()
}
