package httpapi

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/livefire2015/ez-rent/src/billing"
	"github.com/livefire2015/ez-rent/src/models"
	"github.com/livefire2015/ez-rent/src/services"
	"github.com/shopspring/decimal"
)

// Rooms is the room store used by the API
type Rooms interface {
	CreateRoom(ctx context.Context, room *models.Room) error
	GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error)
	ListRooms(ctx context.Context, status models.RoomStatus) ([]*models.Room, error)
	UpdateRoom(ctx context.Context, room *models.Room) error
	DeleteRoom(ctx context.Context, id uuid.UUID) error
}

// Tenants is the tenant store used by the API
type Tenants interface {
	CreateTenant(ctx context.Context, tenant *models.Tenant) error
	GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	ListTenants(ctx context.Context, activeOnly bool) ([]*models.Tenant, error)
	UpdateTenant(ctx context.Context, tenant *models.Tenant) error
	MoveIn(ctx context.Context, tenantID, roomID uuid.UUID, date time.Time) (*models.Tenant, error)
	MoveOut(ctx context.Context, tenantID uuid.UUID, date time.Time) (*models.Tenant, error)
	DeleteTenant(ctx context.Context, id uuid.UUID) error
}

// Readings is the meter reading store used by the API
type Readings interface {
	RecordReading(ctx context.Context, req services.RecordReadingRequest) (*models.MeterReading, error)
	CorrectReading(ctx context.Context, id uuid.UUID, value decimal.Decimal) (*models.MeterReading, error)
	GetReading(ctx context.Context, id uuid.UUID) (*models.MeterReading, error)
	ListReadings(ctx context.Context, roomID *uuid.UUID) ([]*models.MeterReading, error)
}

// Payments records payments
type Payments interface {
	RecordPayment(ctx context.Context, payment *models.Payment) (*services.PaymentResult, error)
	ListPayments(ctx context.Context, tenantID *uuid.UUID) ([]models.Payment, error)
}

// Charges records ad-hoc charges
type Charges interface {
	CreateCharge(ctx context.Context, charge *models.Charge) error
	ListCharges(ctx context.Context, tenantID *uuid.UUID, period *models.Period) ([]models.Charge, error)
}

// Maintenance tracks maintenance requests
type Maintenance interface {
	CreateRequest(ctx context.Context, req *models.MaintenanceRequest) error
	GetRequest(ctx context.Context, id uuid.UUID) (*models.MaintenanceRequest, error)
	ListRequests(ctx context.Context, status models.MaintenanceStatus) ([]*models.MaintenanceRequest, error)
	GetHistory(ctx context.Context, requestID uuid.UUID) ([]models.MaintenanceStatusTransition, error)
	ChangeStatus(ctx context.Context, id uuid.UUID, req services.TransitionRequest) (*services.TransitionResult, error)
}

// Settings reads and writes system settings
type Settings interface {
	ListSettings(ctx context.Context) ([]models.SystemSetting, error)
	SetSetting(ctx context.Context, key, value, description string) (*models.SystemSetting, error)
}

// Bills generates and queries bills
type Bills interface {
	GenerateBills(ctx context.Context, req services.GenerateRequest) (*billing.BulkResult, error)
	GetBill(ctx context.Context, id uuid.UUID) (*models.Bill, error)
	ListBills(ctx context.Context, period models.Period) ([]*models.Bill, error)
	GetBillingHistory(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.BillSummary, error)
}

// Exporter renders bills as spreadsheets
type Exporter interface {
	ExportBills(ctx context.Context, w io.Writer, period models.Period, format services.ExportFormat) error
}

// LateFees assesses late fees
type LateFees interface {
	AssessLateFees(ctx context.Context, period models.Period, asOf time.Time) (*services.LateFeeRun, error)
}

// Dashboards summarizes a period
type Dashboards interface {
	GetDashboard(ctx context.Context, period models.Period) (*services.Dashboard, error)
}

// Deps bundles the services behind the API
type Deps struct {
	Rooms       Rooms
	Tenants     Tenants
	Readings    Readings
	Payments    Payments
	Charges     Charges
	Maintenance Maintenance
	Settings    Settings
	Bills       Bills
	Exporter    Exporter
	LateFees    LateFees
	Dashboards  Dashboards
}
