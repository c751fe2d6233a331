package services

import (
	"context"
	"database/sql"
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

// FeeService assesses late fees on overdue bills
type FeeService struct {
	db        *sql.DB
	billing   *BillingService
	publisher events.Publisher
	logger    *zap.Logger
}

// NewFeeService creates a new fee service. Settings, including any
// configured defaults, come from the billing service.
func NewFeeService(db *sql.DB, billingService *BillingService, publisher events.Publisher, logger *zap.Logger) *FeeService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeeService{
		db:        db,
		billing:   billingService,
		publisher: publisher,
		logger:    logger,
	}
}

// FeeAssessmentResult contains one late fee charged against an overdue bill
type FeeAssessmentResult struct {
	BillID      uuid.UUID       `json:"bill_id"`
	TenantID    uuid.UUID       `json:"tenant_id"`
	Overdue     decimal.Decimal `json:"overdue"`
	DaysOverdue int             `json:"days_overdue"`
	Charge      models.Charge   `json:"charge"`
}

// LateFeeRun summarizes one assessment over a period
type LateFeeRun struct {
	Period     models.Period         `json:"period"`
	AsOf       time.Time             `json:"as_of"`
	Percentage decimal.Decimal       `json:"percentage"`
	Assessed   []FeeAssessmentResult `json:"assessed"`
	Total      decimal.Decimal       `json:"total"`
}

// AssessLateFees charges LateFeePercentage of the outstanding balance on
// every bill of period that is past due as of asOf. The fee lands in the
// following period. Each bill is charged at most once, so repeated runs
// only pick up bills that were not overdue before.
func (s *FeeService) AssessLateFees(ctx context.Context, period models.Period, asOf time.Time) (*LateFeeRun, error) {
	if err := period.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", billing.ErrInvalidInput, err)
	}

	settings, err := s.billing.Settings(ctx)
	if err != nil {
		return nil, err
	}
	percentage, err := settings.LateFeePercentage()
	if err != nil {
		return nil, err
	}

	run := &LateFeeRun{Period: period, AsOf: asOf, Percentage: percentage, Total: decimal.Zero}

	bills, err := s.overdueBills(ctx, period, asOf)
	if err != nil {
		return nil, err
	}

	var evs []events.BillEvent
	for _, bill := range bills {
		fee := billing.ComputeLateFee(bill.CarryForward, percentage)
		if !fee.IsPositive() {
			continue
		}

		billID := bill.ID
		roomID := bill.RoomID
		charge := models.Charge{
			ID:           uuid.New(),
			TenantID:     bill.TenantID,
			RoomID:       &roomID,
			Period:       period.Next(),
			Type:         models.ChargeTypeLateFee,
			Amount:       fee,
			Description:  fmt.Sprintf("Late fee: %s%% of %s overdue for %s", percentage, bill.CarryForward.StringFixed(2), period),
			SourceBillID: &billID,
			CreatedAt:    asOf,
		}

		created, err := s.insertLateFee(ctx, &charge)
		if err != nil {
			return nil, err
		}
		if !created {
			continue
		}

		run.Assessed = append(run.Assessed, FeeAssessmentResult{
			BillID:      bill.ID,
			TenantID:    bill.TenantID,
			Overdue:     bill.CarryForward,
			DaysOverdue: bill.DaysOverdue(asOf),
			Charge:      charge,
		})
		run.Total = run.Total.Add(fee)
		evs = append(evs, events.LateFeeEvent(bill, charge, asOf))
	}

	metrics.ObserveLateFees(len(run.Assessed))
	s.logger.Info("Late fees assessed",
		zap.String("period", period.String()),
		zap.Int("count", len(run.Assessed)),
		zap.String("total", run.Total.StringFixed(2)),
	)
	if err := s.publisher.Publish(ctx, evs...); err != nil {
		s.logger.Error("Failed to publish late fee events", zap.Error(err))
	}
	return run, nil
}

func (s *FeeService) overdueBills(ctx context.Context, period models.Period, asOf time.Time) ([]*models.Bill, error) {
	query := `
		SELECT ` + prefixed("b", billColumns) + `
		FROM bills b
		WHERE b.period_year = $1 AND b.period_month = $2
		  AND b.due_date < $3
		  AND b.carry_forward > 0
		  AND NOT EXISTS (
		      SELECT 1 FROM charges c
		      WHERE c.source_bill_id = b.id AND c.charge_type = 'late_fee'
		  )
		ORDER BY b.due_date, b.id
	`
	rows, err := s.db.QueryContext(ctx, query, period.Year, period.Month, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to find overdue bills: %w", err)
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

// insertLateFee records the charge unless the bill already has one
func (s *FeeService) insertLateFee(ctx context.Context, c *models.Charge) (bool, error) {
	query := `
		INSERT INTO charges (` + chargeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (source_bill_id) WHERE charge_type = 'late_fee' DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		c.ID, c.TenantID, c.RoomID, c.Period.Month, c.Period.Year, c.Type, c.Amount,
		c.Description, c.MaintenanceRequestID, c.SourceBillID, c.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to record late fee: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to record late fee: %w", err)
	}
	return n == 1, nil
}
