package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/livefire2015/ez-rent/src/billing"
	"github.com/livefire2015/ez-rent/src/models"
	"github.com/shopspring/decimal"
)

// MeterReadingService records monthly electric meter readings
type MeterReadingService struct {
	db       *sql.DB
	settings *SettingsService
}

// NewMeterReadingService creates a new meter reading service
func NewMeterReadingService(db *sql.DB, settings *SettingsService) *MeterReadingService {
	return &MeterReadingService{db: db, settings: settings}
}

// RecordReadingRequest contains parameters for recording a reading
type RecordReadingRequest struct {
	RoomID       uuid.UUID       `json:"room_id"`
	Period       models.Period   `json:"period"`
	ReadingValue decimal.Decimal `json:"reading_value"`
	ReadingDate  time.Time       `json:"reading_date"`
}

const readingColumns = `id, room_id, period_month, period_year, reading_value, reading_date,
	previous_reading, units_consumed, unit_rate, amount, billed, created_at, updated_at`

func scanReading(row rowScanner) (*models.MeterReading, error) {
	m := &models.MeterReading{}
	err := row.Scan(
		&m.ID, &m.RoomID, &m.Period.Month, &m.Period.Year, &m.ReadingValue, &m.ReadingDate,
		&m.PreviousReading, &m.UnitsConsumed, &m.UnitRate, &m.Amount, &m.Billed, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// currentRate returns the configured unit cost, zero when unset. The rate
// stored on a reading is informational; bills always price from settings.
func (s *MeterReadingService) currentRate(ctx context.Context) (decimal.Decimal, error) {
	snapshot, err := s.settings.Snapshot(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	rate, err := snapshot.ElectricUnitCost()
	if err != nil {
		return decimal.Zero, nil
	}
	return rate, nil
}

// RecordReading stores the period's reading for a room, deriving consumption
// from the room's preceding reading
func (s *MeterReadingService) RecordReading(ctx context.Context, req RecordReadingRequest) (*models.MeterReading, error) {
	if req.ReadingDate.IsZero() {
		req.ReadingDate = req.Period.End()
	}
	reading := &models.MeterReading{
		RoomID:       req.RoomID,
		Period:       req.Period,
		ReadingValue: req.ReadingValue,
		ReadingDate:  req.ReadingDate,
	}
	if err := reading.Validate(); err != nil {
		return nil, invalid(err)
	}

	rate, err := s.currentRate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get unit rate: %w", err)
	}

	previous, err := s.previousReading(ctx, req.RoomID, req.Period)
	if err != nil {
		return nil, err
	}
	s.derive(reading, previous, rate)

	now := time.Now().UTC()
	reading.ID = uuid.New()
	reading.CreatedAt = now
	reading.UpdatedAt = now

	query := `
		INSERT INTO meter_readings (` + readingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = s.db.ExecContext(ctx, query,
		reading.ID, reading.RoomID, reading.Period.Month, reading.Period.Year, reading.ReadingValue, reading.ReadingDate,
		reading.PreviousReading, reading.UnitsConsumed, reading.UnitRate, reading.Amount, reading.Billed,
		reading.CreatedAt, reading.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record reading for %s: %w", req.Period, mapDBError(err))
	}
	return reading, nil
}

func (s *MeterReadingService) derive(reading, previous *models.MeterReading, rate decimal.Decimal) {
	reading.PreviousReading = reading.ReadingValue
	if previous != nil {
		reading.PreviousReading = previous.ReadingValue
	}
	reading.UnitsConsumed = billing.ComputeUnitsConsumed(reading.PreviousReading, reading.ReadingValue)
	reading.UnitRate = rate
	reading.Amount = billing.ComputeElectricityCharge(reading.UnitsConsumed, rate)
}

// CorrectReading replaces the value of a reading no bill has consumed yet.
// The room's next unbilled reading is re-derived in the same transaction so
// its stored consumption keeps following the corrected value.
func (s *MeterReadingService) CorrectReading(ctx context.Context, id uuid.UUID, value decimal.Decimal) (*models.MeterReading, error) {
	reading, err := s.GetReading(ctx, id)
	if err != nil {
		return nil, err
	}
	if reading.Billed {
		return nil, fmt.Errorf("%w: %w", ErrConflict, models.ErrReadingBilled)
	}
	reading.ReadingValue = value
	if err := reading.Validate(); err != nil {
		return nil, invalid(err)
	}

	rate, err := s.currentRate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get unit rate: %w", err)
	}
	previous, err := s.previousReading(ctx, reading.RoomID, reading.Period)
	if err != nil {
		return nil, err
	}
	s.derive(reading, previous, rate)
	reading.UpdatedAt = time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	if err := updateDerived(ctx, tx, reading); err != nil {
		return nil, err
	}

	next, err := scanReading(tx.QueryRowContext(ctx, `
		SELECT `+readingColumns+`
		FROM meter_readings
		WHERE room_id = $1 AND (period_year, period_month) > ($2, $3)
		ORDER BY period_year, period_month
		LIMIT 1
		FOR UPDATE
	`, reading.RoomID, reading.Period.Year, reading.Period.Month))
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("failed to get next reading: %w", err)
	case !next.Billed:
		s.derive(next, reading, next.UnitRate)
		next.UpdatedAt = reading.UpdatedAt
		if err := updateDerived(ctx, tx, next); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit reading correction: %w", err)
	}
	return reading, nil
}

// updateDerived writes a reading's value and derived fields unless it has been billed
func updateDerived(ctx context.Context, tx *sql.Tx, reading *models.MeterReading) error {
	query := `
		UPDATE meter_readings
		SET reading_value = $1, previous_reading = $2, units_consumed = $3,
		    unit_rate = $4, amount = $5, updated_at = $6
		WHERE id = $7 AND NOT billed
	`
	res, err := tx.ExecContext(ctx, query,
		reading.ReadingValue, reading.PreviousReading, reading.UnitsConsumed,
		reading.UnitRate, reading.Amount, reading.UpdatedAt, reading.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to correct reading: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %w", ErrConflict, models.ErrReadingBilled)
	}
	return nil
}

// GetReading retrieves a reading by ID
func (s *MeterReadingService) GetReading(ctx context.Context, id uuid.UUID) (*models.MeterReading, error) {
	query := `SELECT ` + readingColumns + ` FROM meter_readings WHERE id = $1`
	reading, err := scanReading(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get reading %s: %w", id, mapDBError(err))
	}
	return reading, nil
}

// ListReadings returns readings newest first, optionally for one room
func (s *MeterReadingService) ListReadings(ctx context.Context, roomID *uuid.UUID) ([]*models.MeterReading, error) {
	query := `
		SELECT ` + readingColumns + `
		FROM meter_readings
		WHERE ($1::uuid IS NULL OR room_id = $1)
		ORDER BY period_year DESC, period_month DESC, room_id
	`
	rows, err := s.db.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list readings: %w", err)
	}
	defer rows.Close()

	var readings []*models.MeterReading
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		readings = append(readings, reading)
	}
	return readings, rows.Err()
}

// ReadingsForPeriod returns the room's reading for period and the latest one
// before it. Either may be nil.
func (s *MeterReadingService) ReadingsForPeriod(
	ctx context.Context,
	roomID uuid.UUID,
	period models.Period,
) (current, previous *models.MeterReading, err error) {
	query := `SELECT ` + readingColumns + ` FROM meter_readings WHERE room_id = $1 AND period_year = $2 AND period_month = $3`
	current, err = scanReading(s.db.QueryRowContext(ctx, query, roomID, period.Year, period.Month))
	if errors.Is(err, sql.ErrNoRows) {
		current, err = nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get reading for %s: %w", period, err)
	}

	previous, err = s.previousReading(ctx, roomID, period)
	if err != nil {
		return nil, nil, err
	}
	return current, previous, nil
}

func (s *MeterReadingService) previousReading(ctx context.Context, roomID uuid.UUID, period models.Period) (*models.MeterReading, error) {
	query := `
		SELECT ` + readingColumns + `
		FROM meter_readings
		WHERE room_id = $1 AND (period_year, period_month) < ($2, $3)
		ORDER BY period_year DESC, period_month DESC
		LIMIT 1
	`
	reading, err := scanReading(s.db.QueryRowContext(ctx, query, roomID, period.Year, period.Month))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get previous reading: %w", err)
	}
	return reading, nil
}

func markReadingBilled(ctx context.Context, tx *sql.Tx, id uuid.UUID, at time.Time) error {
	_, err := tx.ExecContext(ctx, `UPDATE meter_readings SET billed = TRUE, updated_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("failed to mark reading billed: %w", err)
	}
	return nil
}
