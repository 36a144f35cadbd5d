package payroll_test

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-ledger/generic"
	"github.com/warp/attendance-ledger/payroll"
	"github.com/xuri/excelize/v2"
)

func TestWriteCSV_RowsAndTotal(t *testing.T) {
	// GIVEN: The portfolio with Ana's Mar 4 penalty waived
	res := compute(t, portfolio(), generic.Edit{
		ShiftID: payroll.ShiftIDFor("Ana Lima", generic.NewTimePoint(2025, time.March, 4)),
		Kind:    generic.EditWaiverToggle,
	})

	// WHEN: Exporting
	var buf bytes.Buffer
	require.NoError(t, payroll.WriteCSV(&buf, res))

	// THEN: Header, one row per shift, then TOTAL
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1+4+1)

	header := records[0]
	assert.Equal(t, []string{
		"Employee", "Date", "Arrival", "Departure", "Hours Worked", "Lateness (min)", "Penalty",
		"Standard Pay", "OT Pay", "Net Pay", "Paid", "Remaining", "Notes",
	}, header)

	first := records[1]
	assert.Equal(t, "Ana Lima", first[0])
	assert.Equal(t, "2025-03-03", first[1])
	assert.Equal(t, "10:40", first[2])
	assert.Equal(t, "20:00", first[3])
	assert.Equal(t, "9.33", first[4])
	assert.Equal(t, "10.52", first[9])

	waived := records[2]
	assert.Equal(t, "25", waived[5])
	assert.Equal(t, "0.00", waived[6], "waived penalty exports as zero")
	assert.Equal(t, "10.00", waived[9])

	total := records[len(records)-1]
	assert.Equal(t, "TOTAL", total[0])
	assert.Equal(t, "", total[1])
	assert.Equal(t, "35", total[5])
	assert.Equal(t, "3.00", total[6])
	assert.Equal(t, "37.78", total[9])
	assert.Equal(t, "10.00", total[10])
	assert.Equal(t, "27.78", total[11])
}

func TestExportPenalty_IncludesManualPenalty(t *testing.T) {
	s := lateShift(t)
	s, ok := payroll.ApplyManualPenalty(s, dec("2"), "uniform")
	require.True(t, ok)

	assertDecimal(t, "7", payroll.ExportPenalty(s), "export penalty")
}

func TestWriteXLSX_Sheets(t *testing.T) {
	res := compute(t, portfolio())

	var buf bytes.Buffer
	require.NoError(t, payroll.WriteXLSX(&buf, res))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Ledger", "Employees", "Months"}, f.GetSheetList())

	ledger, err := f.GetRows("Ledger")
	require.NoError(t, err)
	require.Len(t, ledger, 1+4+1)
	assert.Equal(t, "TOTAL", ledger[5][0])

	employees, err := f.GetRows("Employees")
	require.NoError(t, err)
	require.Len(t, employees, 3)
	assert.Equal(t, "Ben Okafor", employees[1][1])

	months, err := f.GetRows("Months")
	require.NoError(t, err)
	require.Len(t, months, 3)
	assert.Equal(t, "March 2025", months[1][0])
}
