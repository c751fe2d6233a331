package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/livefire2015/ez-rent/src/billing"
	"github.com/livefire2015/ez-rent/src/models"
	"github.com/livefire2015/ez-rent/src/services"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultHistoryLimit = 12

// parseDate accepts YYYY-MM-DD or RFC 3339; empty yields the zero time
func parseDate(w http.ResponseWriter, raw, field string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, true
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t.UTC(), true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid_argument", field+" must be YYYY-MM-DD or RFC 3339")
		return time.Time{}, false
	}
	return t.UTC(), true
}

// Rooms

type roomRequest struct {
	RoomNumber    string            `json:"room_number"`
	Floor         int               `json:"floor"`
	MonthlyRent   decimal.Decimal   `json:"monthly_rent"`
	Status        models.RoomStatus `json:"status"`
	ElectricMeter string            `json:"electric_meter"`
	Description   string            `json:"description"`
}

func (req roomRequest) room() *models.Room {
	return &models.Room{
		RoomNumber:    req.RoomNumber,
		Floor:         req.Floor,
		MonthlyRent:   req.MonthlyRent,
		Status:        req.Status,
		ElectricMeter: req.ElectricMeter,
		Description:   req.Description,
	}
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	status := models.RoomStatus(r.URL.Query().Get("status"))
	rooms, err := s.deps.Rooms.ListRooms(r.Context(), status)
	if err != nil {
		writeError(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, rooms)
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req roomRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	room := req.room()
	if err := s.deps.Rooms.CreateRoom(r.Context(), room); err != nil {
		writeError(w, err)
		return
	}
	_ = writeJSON(w, http.StatusCreated, room)
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	room, err := s.deps.Rooms.GetRoom(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, room)
}

func (s *Server) handleUpdateRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req roomRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	room := req.room()
	room.ID = id
	if err := s.deps.Rooms.UpdateRoom(r.Context(), room); err != nil {
		writeError(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, room)
}

func (s *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.deps.Rooms.DeleteRoom(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Tenants

type tenantRequest struct {
	Name             string          `json:"name"`
	Email            string          `json:"email"`
	Phone            string          `json:"phone"`
	EmergencyContact string          `json:"emergency_contact"`
	SecurityDeposit  decimal.Decimal `json:"security_deposit"`
	RoomID           *uuid.UUID      `json:"room_id,omitempty"`
	MoveInDate       string          `json:"move_in_date,omitempty"`
}

type occupancyRequest struct {
	RoomID uuid.UUID `json:"room_id"`
	Date   string    `json:"date"`
}

func (s *Server) handleListTenants(w http.ResponseWriter, r *http.Request) {
	activeOnly, ok := queryBool(w, r, "active")
	if !ok {
		return
	}
	tenants, err := s.deps.Tenants.ListTenants(r.Context(), activeOnly)
	if err != nil {
		writeError(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, tenants)
}

func (s *Server) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	var req tenantRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	moveIn, ok := parseDate(w, req.MoveInDate, "move_in_date")
	if !ok {
		return
	}
	tenant := &models.Tenant{
		Name:             req.Name,
		Email:            req.Email,
		Phone:            req.Phone,
		EmergencyContact: req.EmergencyContact,
		SecurityDeposit:  req.SecurityDeposit,
		RoomID:           req.RoomID,
		MoveInDate:       moveIn,
	}
	if err := s.deps.Tenants.CreateTenant(r.Context(), tenant); err != nil {
		writeError(w, err)
		return
	}
	_ = writeJSON(w, http.StatusCreated, tenant)
}

func (s *Server) handleGetTenant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	tenant, err := s.deps.Tenants.GetTenant(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, tenant)
}

func (s *Server) handleUpdateTenant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req tenantRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tenant, err := s.deps.Tenants.GetTenant(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	tenant.Name = req.Name
	tenant.Email = req.Email
	tenant.Phone = req.Phone
	tenant.EmergencyContact = req.EmergencyContact
	tenant.SecurityDeposit = req.SecurityDeposit
	if err := s.deps.Tenants.UpdateTenant(r.Context(), tenant); err != nil {
		writeError(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, tenant)
}

func (s *Server) handleDeleteTenant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.deps.Tenants.DeleteTenant(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMoveIn(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req occupancyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RoomID == uuid.Nil {
		writeAPIError(w, http.StatusBadRequest, "invalid_argument", "room_id is required")
		return
	}
	date, ok := parseDate(w, req.Date, "date")
	if !ok {
		return
	}
	if date.IsZero() {
		date = s.now().Truncate(24 * time.Hour)
	}
	tenant, err := s.deps.Tenants.MoveIn(r.Context(), id, req.RoomID, date)
	if err != nil {
		writeError(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, tenant)
}

func (s *Server) handleMoveOut(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Date string `json:"date"`
	}
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	date, ok := parseDate(w, req.Date, "date")
	if !ok {
		return
	}
	if date.IsZero() {
		date = s.now().Truncate(24 * time.Hour)
	}
	tenant, err := s.deps.Tenants.MoveOut(r.Context(), id, date)
	if err != nil {
		writeError(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, tenant)
}

func (s *Server) handleTenantBills(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit", defaultHistoryLimit)
	if !ok {
		return
	}
	history, err := s.deps.Bills.GetBillingHistory(r.Context(), id, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, history)
}

// Meter readings

type readingRequest struct {
	RoomID       uuid.UUID       `json:"room_id"`
	Period       string          `json:"period"`
	ReadingValue decimal.Decimal `json:"reading_value"`
	ReadingDate  string          `json:"reading_date,omitempty"`
}

func (s *Server) handleListReadings(w http.ResponseWriter, r *http.Request) {
	roomID, ok := queryUUID(w, r, "room_id")
	if !ok {
		return
	}
	readings, err := s.deps.Readings.ListReadings(r.Context(), roomID)
	if err != nil {
		writeError(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, readings)
}

func (s *Server) handleRecordReading(w http.ResponseWriter, r *http.Request) {
	var req readingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	period, ok := parseBodyPeriod(w, req.Period)
	if !ok {
		return
	}
	date, ok := parseDate(w, req.ReadingDate, "reading_date")
	if !ok {
		return
	}
	reading, err := s.deps.Readings.RecordReading(r.Context(), services.RecordReadingRequest{
		RoomID:       req.RoomID,
		Period:       period,
		ReadingValue: req.ReadingValue,
		ReadingDate:  date,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	_ = writeJSON(w, http.StatusCreated, reading)
}

func (s *Server) handleGetReading(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	reading, err := s.deps.Readings.GetReading(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, reading)
}

func (s *Server) handleCorrectReading(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		ReadingValue decimal.Decimal `json:"reading_value"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	reading, err := s.deps.Readings.CorrectReading(r.Context(), id, req.ReadingValue)
	if err != nil {
		writeError(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, reading)
}

// Payments

type paymentRequest struct {
	TenantID    uuid.UUID            `json:"tenant_id"`
	Period      string               `json:"period"`
	Amount      decimal.Decimal      `json:"amount"`
	PaymentDate string               `json:"payment_date,omitempty"`
	Method      models.PaymentMethod `json:"method"`
	Reference   string               `json:"reference,omitempty"`
	Notes       string               `json:"notes,omitempty"`
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := queryUUID(w, r, "tenant_id")
	if !ok {
		return
	}
	payments, err := s.deps.Payments.ListPayments(r.Context(), tenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, payments)
}

func (s *Server) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	period, ok := parseBodyPeriod(w, req.Period)
	if !ok {
		return
	}
	paid, ok := parseDate(w, req.PaymentDate, "payment_date")
	if !ok {
		return
	}
	result, err := s.deps.Payments.RecordPayment(r.Context(), &models.Payment{
		TenantID:    req.TenantID,
		Period:      period,
		Amount:      req.Amount,
		PaymentDate: paid,
		Method:      req.Method,
		Reference:   req.Reference,
		Notes:       req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	_ = writeJSON(w, http.StatusCreated, result)
}

// Charges

type chargeRequest struct {
	TenantID    uuid.UUID         `json:"tenant_id"`
	RoomID      *uuid.UUID        `json:"room_id,omitempty"`
	Period      string            `json:"period"`
	Type        models.ChargeType `json:"type"`
	Amount      decimal.Decimal   `json:"amount"`
	Description string            `json:"description"`
}

func (s *Server) handleListCharges(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := queryUUID(w, r, "tenant_id")
	if !ok {
		return
	}
	period, ok := queryPeriod(w, r, false)
	if !ok {
		return
	}
	charges, err := s.deps.Charges.ListCharges(r.Context(), tenantID, period)
	if err != nil {
		writeError(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, charges)
}

func (s *Server) handleCreateCharge(w http.ResponseWriter, r *http.Request) {
	var req chargeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	period, ok := parseBodyPeriod(w, req.Period)
	if !ok {
		return
	}
	if req.Type == "" {
		req.Type = models.ChargeTypeMiscellaneous
	}
	charge := &models.Charge{
		TenantID:    req.TenantID,
		RoomID:      req.RoomID,
		Period:      period,
		Type:        req.Type,
		Amount:      req.Amount,
		Description: req.Description,
	}
	if err := s.deps.Charges.CreateCharge(r.Context(), charge); err != nil {
		writeError(w, err)
		return
	}
	_ = writeJSON(w, http.StatusCreated, charge)
}

// Maintenance

type maintenanceRequest struct {
	RoomID        uuid.UUID                  `json:"room_id"`
	TenantID      *uuid.UUID                 `json:"tenant_id,omitempty"`
	Title         string                     `json:"title"`
	Description   string                     `json:"description"`
	Priority      models.MaintenancePriority `json:"priority"`
	EstimatedCost decimal.Decimal            `json:"estimated_cost"`
	ChargeTenant  bool                       `json:"charge_tenant"`
}

type statusRequest struct {
	Status     models.MaintenanceStatus `json:"status"`
	ActualCost *decimal.Decimal         `json:"actual_cost,omitempty"`
	Note       string                   `json:"note,omitempty"`
	At         string                   `json:"at,omitempty"`
}

type maintenanceDetail struct {
	*models.MaintenanceRequest
	History []models.MaintenanceStatusTransition `json:"history"`
}

func (s *Server) handleListMaintenance(w http.ResponseWriter, r *http.Request) {
	status := models.MaintenanceStatus(r.URL.Query().Get("status"))
	requests, err := s.deps.Maintenance.ListRequests(r.Context(), status)
	if err != nil {
		writeError(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, requests)
}

func (s *Server) handleCreateMaintenance(w http.ResponseWriter, r *http.Request) {
	var req maintenanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	mr := &models.MaintenanceRequest{
		RoomID:        req.RoomID,
		TenantID:      req.TenantID,
		Title:         req.Title,
		Description:   req.Description,
		Priority:      req.Priority,
		EstimatedCost: req.EstimatedCost,
		ChargeTenant:  req.ChargeTenant,
	}
	if err := s.deps.Maintenance.CreateRequest(r.Context(), mr); err != nil {
		writeError(w, err)
		return
	}
	_ = writeJSON(w, http.StatusCreated, mr)
}

func (s *Server) handleGetMaintenance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	mr, err := s.deps.Maintenance.GetRequest(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	history, err := s.deps.Maintenance.GetHistory(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, maintenanceDetail{MaintenanceRequest: mr, History: history})
}

func (s *Server) handleMaintenanceStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	at, ok := parseDate(w, req.At, "at")
	if !ok {
		return
	}
	result, err := s.deps.Maintenance.ChangeStatus(r.Context(), id, services.TransitionRequest{
		Status:     req.Status,
		ActualCost: req.ActualCost,
		Note:       req.Note,
		At:         at,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, result)
}

// Settings

func (s *Server) handleListSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.deps.Settings.ListSettings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleSetSetting(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value       string `json:"value"`
		Description string `json:"description,omitempty"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	setting, err := s.deps.Settings.SetSetting(r.Context(), r.PathValue("key"), req.Value, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, setting)
}

// Bills

type generateRequest struct {
	Period   string     `json:"period"`
	TenantID *uuid.UUID `json:"tenant_id,omitempty"`
}

type generateResponse struct {
	Period    models.Period          `json:"period"`
	Generated int                    `json:"generated"`
	Failed    int                    `json:"failed"`
	Results   []billing.TenantResult `json:"results"`
}

func (s *Server) handleGenerateBills(w http.ResponseWriter, r *http.Request) {
	if !s.allowGeneration(w) {
		return
	}
	var req generateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	period, ok := parseBodyPeriod(w, req.Period)
	if !ok {
		return
	}

	result, err := s.deps.Bills.GenerateBills(r.Context(), services.GenerateRequest{
		Period:   period,
		TenantID: req.TenantID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if req.TenantID != nil && len(result.Results) == 1 {
		res := result.Results[0]
		if !res.OK() {
			writeError(w, res.Err)
			return
		}
		_ = writeJSON(w, http.StatusCreated, res.Bill)
		return
	}

	failed := len(result.Failures())
	if failed > 0 {
		s.logger.Warn("Bill generation finished with failures",
			zap.String("period", period.String()),
			zap.Int("failed", failed),
		)
	}
	_ = writeJSON(w, http.StatusOK, generateResponse{
		Period:    result.Period,
		Generated: len(result.Results) - failed,
		Failed:    failed,
		Results:   result.Results,
	})
}

func (s *Server) handleLateFees(w http.ResponseWriter, r *http.Request) {
	if !s.allowGeneration(w) {
		return
	}
	var req struct {
		Period string `json:"period"`
		AsOf   string `json:"as_of,omitempty"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	period, ok := parseBodyPeriod(w, req.Period)
	if !ok {
		return
	}
	asOf, ok := parseDate(w, req.AsOf, "as_of")
	if !ok {
		return
	}
	if asOf.IsZero() {
		asOf = s.now()
	}
	run, err := s.deps.LateFees.AssessLateFees(r.Context(), period, asOf)
	if err != nil {
		writeError(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	period, ok := queryPeriod(w, r, true)
	if !ok {
		return
	}
	bills, err := s.deps.Bills.ListBills(r.Context(), *period)
	if err != nil {
		writeError(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, bills)
}

func (s *Server) handleGetBill(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	bill, err := s.deps.Bills.GetBill(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, bill)
}

func (s *Server) handleExportBills(w http.ResponseWriter, r *http.Request) {
	period, ok := queryPeriod(w, r, true)
	if !ok {
		return
	}
	format, err := services.ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+format.FileName(*period)+`"`)
	if err := s.deps.Exporter.ExportBills(r.Context(), w, *period, format); err != nil {
		// Headers may already be sent; only report cleanly if nothing was written
		if rec, ok := w.(*statusRecorder); ok && rec.wroteHeader {
			s.logger.Error("Bill export failed mid-stream", zap.Error(err))
			return
		}
		w.Header().Del("Content-Disposition")
		writeError(w, err)
	}
}

// Dashboard

type dashboardResponse struct {
	*services.Dashboard
	Occupancy decimal.Decimal `json:"occupancy_rate"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	period, ok := queryPeriod(w, r, false)
	if !ok {
		return
	}
	p := models.PeriodOf(s.now())
	if period != nil {
		p = *period
	}
	dashboard, err := s.deps.Dashboards.GetDashboard(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, dashboardResponse{Dashboard: dashboard, Occupancy: dashboard.OccupancyRate()})
}
