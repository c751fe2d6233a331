package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/livefire2015/ez-rent/src/models"
	"github.com/xuri/excelize/v2"
)

// ExportFormat selects the export file type
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
)

// ErrUnknownFormat is returned for an unsupported export format
var ErrUnknownFormat = errors.New("export format must be csv or xlsx")

// ParseExportFormat parses a format name, defaulting to CSV
func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", ExportCSV:
		return ExportCSV, nil
	case ExportXLSX:
		return ExportXLSX, nil
	default:
		return "", invalid(ErrUnknownFormat)
	}
}

// ContentType returns the MIME type of the format
func (f ExportFormat) ContentType() string {
	if f == ExportXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// FileName returns the download name for a period's export
func (f ExportFormat) FileName(period models.Period) string {
	return fmt.Sprintf("bills_%s.%s", period, f)
}

// ExportService renders a period's bills as spreadsheets
type ExportService struct {
	billing *BillingService
}

// NewExportService creates a new export service
func NewExportService(billingService *BillingService) *ExportService {
	return &ExportService{billing: billingService}
}

// ExportBills writes the period's bills to w in the given format
func (s *ExportService) ExportBills(ctx context.Context, w io.Writer, period models.Period, format ExportFormat) error {
	bills, err := s.billing.ListBills(ctx, period)
	if err != nil {
		return err
	}
	switch format {
	case ExportXLSX:
		return WriteBillsXLSX(w, period, bills)
	case ExportCSV:
		return WriteBillsCSV(w, bills)
	default:
		return invalid(ErrUnknownFormat)
	}
}

var exportHeader = []string{
	"bill_id", "tenant_id", "room_id", "period",
	"previous_reading", "current_reading", "units_consumed", "unit_rate",
	"rent_charge", "electricity_charge", "misc_charge", "balance_forward",
	"total_due", "amount_paid", "carry_forward", "due_date", "status", "version",
}

func exportRow(b *models.Bill) []string {
	return []string{
		b.ID.String(), b.TenantID.String(), b.RoomID.String(), b.Period.String(),
		b.PreviousReading.String(), b.CurrentReading.String(), b.UnitsConsumed.String(), b.UnitRate.String(),
		b.RentCharge.StringFixed(2), b.ElectricityCharge.StringFixed(2), b.MiscCharge.StringFixed(2), b.BalanceForward.StringFixed(2),
		b.TotalDue.StringFixed(2), b.AmountPaid.StringFixed(2), b.CarryForward.StringFixed(2),
		b.DueDate.Format("2006-01-02"), string(b.Status), strconv.Itoa(b.Version),
	}
}

// WriteBillsCSV writes a header row and one row per bill
func WriteBillsCSV(w io.Writer, bills []*models.Bill) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, b := range bills {
		if err := cw.Write(exportRow(b)); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteBillsXLSX writes one sheet named after the period with a bold header.
// Money columns are numeric cells.
func WriteBillsXLSX(w io.Writer, period models.Period, bills []*models.Bill) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := period.String()
	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, b := range bills {
		row := []interface{}{
			b.ID.String(), b.TenantID.String(), b.RoomID.String(), b.Period.String(),
			b.PreviousReading.InexactFloat64(), b.CurrentReading.InexactFloat64(),
			b.UnitsConsumed.InexactFloat64(), b.UnitRate.InexactFloat64(),
			b.RentCharge.InexactFloat64(), b.ElectricityCharge.InexactFloat64(),
			b.MiscCharge.InexactFloat64(), b.BalanceForward.InexactFloat64(),
			b.TotalDue.InexactFloat64(), b.AmountPaid.InexactFloat64(), b.CarryForward.InexactFloat64(),
			b.DueDate.Format("2006-01-02"), string(b.Status), b.Version,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to address row: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
