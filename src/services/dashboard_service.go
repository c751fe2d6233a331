package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/livefire2015/ez-rent/src/models"
	"github.com/shopspring/decimal"
)

// DashboardService summarizes occupancy, billing and maintenance
type DashboardService struct {
	db *sql.DB
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(db *sql.DB) *DashboardService {
	return &DashboardService{db: db}
}

// Dashboard is the landlord overview for one period
type Dashboard struct {
	Period           models.Period             `json:"period"`
	RoomsByStatus    map[models.RoomStatus]int `json:"rooms_by_status"`
	TotalRooms       int                       `json:"total_rooms"`
	ActiveTenants    int                       `json:"active_tenants"`
	BillsGenerated   int                       `json:"bills_generated"`
	TotalBilled      decimal.Decimal           `json:"total_billed"`
	TotalCollected   decimal.Decimal           `json:"total_collected"`
	TotalOutstanding decimal.Decimal           `json:"total_outstanding"` // Positive carry forwards only
	OpenMaintenance  int                       `json:"open_maintenance"`
}

// OccupancyRate returns occupied rooms as a fraction of all rooms
func (d *Dashboard) OccupancyRate() decimal.Decimal {
	if d.TotalRooms == 0 {
		return decimal.Zero
	}
	occupied := decimal.NewFromInt(int64(d.RoomsByStatus[models.RoomStatusOccupied]))
	return occupied.Div(decimal.NewFromInt(int64(d.TotalRooms))).Round(4)
}

// GetDashboard gathers the overview for a period
func (s *DashboardService) GetDashboard(ctx context.Context, period models.Period) (*Dashboard, error) {
	d := &Dashboard{
		Period:        period,
		RoomsByStatus: map[models.RoomStatus]int{},
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM rooms GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count rooms: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status models.RoomStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan room count: %w", err)
		}
		d.RoomsByStatus[status] = n
		d.TotalRooms += n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to count rooms: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tenants WHERE active`).Scan(&d.ActiveTenants); err != nil {
		return nil, fmt.Errorf("failed to count tenants: %w", err)
	}

	billQuery := `
		SELECT COUNT(*),
		       COALESCE(SUM(total_due), 0),
		       COALESCE(SUM(amount_paid), 0),
		       COALESCE(SUM(GREATEST(carry_forward, 0)), 0)
		FROM bills
		WHERE period_year = $1 AND period_month = $2
	`
	err = s.db.QueryRowContext(ctx, billQuery, period.Year, period.Month).Scan(
		&d.BillsGenerated, &d.TotalBilled, &d.TotalCollected, &d.TotalOutstanding,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize bills: %w", err)
	}

	maintenanceQuery := `SELECT COUNT(*) FROM maintenance_requests WHERE status IN ('pending', 'in_progress')`
	if err := s.db.QueryRowContext(ctx, maintenanceQuery).Scan(&d.OpenMaintenance); err != nil {
		return nil, fmt.Errorf("failed to count maintenance requests: %w", err)
	}

	return d, nil
}
