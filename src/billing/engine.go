package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/livefire2015/ez-rent/src/models"
	"github.com/shopspring/decimal"
)

// DataSource supplies the per-tenant inputs of a bill
type DataSource interface {
	// MeterReadings returns the room's reading for period and the one
	// immediately before it. current is nil when the period has no reading;
	// previous is nil when the room has no earlier reading.
	MeterReadings(ctx context.Context, roomID uuid.UUID, period models.Period) (current, previous *models.MeterReading, err error)
	Charges(ctx context.Context, tenantID uuid.UUID, period models.Period) ([]models.Charge, error)
	Payments(ctx context.Context, tenantID uuid.UUID, period models.Period) ([]models.Payment, error)
	// PriorBalance returns the carry forward of the tenant's bill for the
	// period before period, zero if there is none.
	PriorBalance(ctx context.Context, tenantID uuid.UUID, period models.Period) (decimal.Decimal, error)
}

// Engine gathers inputs through a DataSource and computes bills.
// It keeps no state between calls and is safe for concurrent use.
type Engine struct {
	source DataSource
	now    func() time.Time
}

// NewEngine creates a new billing engine
func NewEngine(source DataSource) *Engine {
	return &Engine{
		source: source,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock returns a copy of the engine using now for generation timestamps
func (e *Engine) WithClock(now func() time.Time) *Engine {
	return &Engine{source: e.source, now: now}
}

// TenantResult is the outcome of computing one tenant's bill in a batch
type TenantResult struct {
	TenantID uuid.UUID    `json:"tenant_id"`
	RoomID   uuid.UUID    `json:"room_id"`
	Bill     *models.Bill `json:"bill,omitempty"`
	Kind     FailureKind  `json:"failure_kind,omitempty"`
	Error    string       `json:"error,omitempty"`
	Err      error        `json:"-"`
}

// OK reports whether the bill was computed
func (r TenantResult) OK() bool {
	return r.Err == nil
}

// BulkResult is the per-tenant report of a batch run
type BulkResult struct {
	Period  models.Period  `json:"period"`
	Results []TenantResult `json:"results"` // Same order as the input assignments
}

// Bills returns the successfully computed bills
func (r *BulkResult) Bills() []*models.Bill {
	var bills []*models.Bill
	for _, res := range r.Results {
		if res.OK() {
			bills = append(bills, res.Bill)
		}
	}
	return bills
}

// Failures returns the failed tenants
func (r *BulkResult) Failures() []TenantResult {
	var failed []TenantResult
	for _, res := range r.Results {
		if !res.OK() {
			failed = append(failed, res)
		}
	}
	return failed
}

// ComputeBill gathers the tenant's inputs for period and computes the bill
func (e *Engine) ComputeBill(
	ctx context.Context,
	assignment models.Assignment,
	period models.Period,
	settings models.Settings,
) (*models.Bill, error) {
	current, previous, err := e.source.MeterReadings(ctx, assignment.Room.ID, period)
	if err != nil {
		return nil, fmt.Errorf("failed to get meter readings: %w", err)
	}

	charges, err := e.source.Charges(ctx, assignment.Tenant.ID, period)
	if err != nil {
		return nil, fmt.Errorf("failed to get charges: %w", err)
	}

	payments, err := e.source.Payments(ctx, assignment.Tenant.ID, period)
	if err != nil {
		return nil, fmt.Errorf("failed to get payments: %w", err)
	}

	priorBalance, err := e.source.PriorBalance(ctx, assignment.Tenant.ID, period)
	if err != nil {
		return nil, fmt.Errorf("failed to get prior balance: %w", err)
	}

	return ComputeBill(BillInput{
		Tenant:          assignment.Tenant,
		Room:            assignment.Room,
		Period:          period,
		PriorBalance:    priorBalance,
		Reading:         current,
		PreviousReading: previous,
		Charges:         charges,
		Payments:        payments,
		GeneratedAt:     e.now(),
	}, settings)
}

// GenerateBulkBills computes one bill per assignment. A failure for one tenant
// is recorded in its result and never stops the batch; each bill depends only
// on its own tenant's history.
func (e *Engine) GenerateBulkBills(
	ctx context.Context,
	period models.Period,
	assignments []models.Assignment,
	settings models.Settings,
) *BulkResult {
	result := &BulkResult{
		Period:  period,
		Results: make([]TenantResult, 0, len(assignments)),
	}

	for _, a := range assignments {
		res := TenantResult{TenantID: a.Tenant.ID, RoomID: a.Room.ID}

		bill, err := e.ComputeBill(ctx, a, period, settings)
		if err != nil {
			res.Err = err
			res.Kind = KindOf(err)
			res.Error = err.Error()
		} else {
			res.Bill = bill
		}

		result.Results = append(result.Results, res)
	}

	return result
}
