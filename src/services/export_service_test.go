package services

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/livefire2015/ez-rent/src/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func exportBills() []*models.Bill {
	period := models.Period{Month: 3, Year: 2024}
	return []*models.Bill{
		{
			ID:                uuid.New(),
			TenantID:          uuid.New(),
			RoomID:            uuid.New(),
			Period:            period,
			PreviousReading:   d("100"),
			CurrentReading:    d("140"),
			UnitsConsumed:     d("40"),
			UnitRate:          d("8.00"),
			RentCharge:        d("5000"),
			ElectricityCharge: d("320"),
			MiscCharge:        d("0"),
			BalanceForward:    d("0"),
			TotalDue:          d("5320"),
			AmountPaid:        d("5000"),
			CarryForward:      d("320"),
			DueDate:           time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
			Status:            models.BillStatusPartiallyPaid,
			Version:           1,
		},
	}
}

func TestParseExportFormat(t *testing.T) {
	f, err := ParseExportFormat("")
	require.NoError(t, err)
	assert.Equal(t, ExportCSV, f)

	f, err = ParseExportFormat("XLSX")
	require.NoError(t, err)
	assert.Equal(t, ExportXLSX, f)
	assert.Equal(t, "bills_2024-03.xlsx", f.FileName(models.Period{Month: 3, Year: 2024}))

	_, err = ParseExportFormat("pdf")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestWriteBillsCSV(t *testing.T) {
	bills := exportBills()
	var buf bytes.Buffer
	require.NoError(t, WriteBillsCSV(&buf, bills))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, exportHeader, records[0])

	row := records[1]
	assert.Equal(t, bills[0].ID.String(), row[0])
	assert.Equal(t, "2024-03", row[3])
	assert.Equal(t, "320.00", row[9])
	assert.Equal(t, "5320.00", row[12])
	assert.Equal(t, "320.00", row[14])
	assert.Equal(t, "2024-03-11", row[15])
	assert.Equal(t, "partially_paid", row[16])
}

func TestWriteBillsCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBillsCSV(&buf, nil))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestWriteBillsXLSX(t *testing.T) {
	bills := exportBills()
	period := models.Period{Month: 3, Year: 2024}
	var buf bytes.Buffer
	require.NoError(t, WriteBillsXLSX(&buf, period, bills))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"2024-03"}, f.GetSheetList())

	rows, err := f.GetRows("2024-03")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "bill_id", rows[0][0])
	assert.Equal(t, bills[0].ID.String(), rows[1][0])
	assert.Equal(t, "5320", rows[1][12])
	assert.Equal(t, "partially_paid", rows[1][16])
}
