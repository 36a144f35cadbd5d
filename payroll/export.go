package payroll

import (
	"fmt"
	"io"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// =============================================================================
// EXPORT - CSV and XLSX renditions of a Result
// =============================================================================

const totalLabel = "TOTAL"

type ledgerRow struct {
	Employee        string `csv:"Employee"`
	Date            string `csv:"Date"`
	Arrival         string `csv:"Arrival"`
	Departure       string `csv:"Departure"`
	HoursWorked     string `csv:"Hours Worked"`
	LatenessMinutes string `csv:"Lateness (min)"`
	Penalty         string `csv:"Penalty"`
	StandardPay     string `csv:"Standard Pay"`
	OTPay           string `csv:"OT Pay"`
	NetPay          string `csv:"Net Pay"`
	Paid            string `csv:"Paid"`
	Remaining       string `csv:"Remaining"`
	Notes           string `csv:"Notes"`
}

// ExportPenalty is the penalty shown in exports: the attendance penalty left
// after any waiver plus the manual penalty.
func ExportPenalty(s Shift) decimal.Decimal {
	return s.EffectivePenalty().Add(s.ManualPenalty)
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func clockOf(s Shift, out bool) string {
	if !s.HasCheckIn {
		return ""
	}
	if out {
		return s.ActualOut.Format("15:04")
	}
	return s.ActualIn.Format("15:04")
}

func ledgerRows(res *Result) []*ledgerRow {
	rows := make([]*ledgerRow, 0, len(res.Shifts)+1)
	hours, penalty, standard, ot, net, paid, remaining := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	late := 0
	for _, s := range res.Shifts {
		p := ExportPenalty(s)
		rows = append(rows, &ledgerRow{
			Employee:        s.Employee,
			Date:            s.Date.String(),
			Arrival:         clockOf(s, false),
			Departure:       clockOf(s, true),
			HoursWorked:     s.WorkHours.StringFixed(2),
			LatenessMinutes: strconv.Itoa(s.LatenessMinutes),
			Penalty:         money(p),
			StandardPay:     money(s.StandardPay),
			OTPay:           money(s.OTPay),
			NetPay:          money(s.NetPay),
			Paid:            money(s.AmountPaid),
			Remaining:       money(s.BalanceRemaining),
			Notes:           s.Notes,
		})
		hours = hours.Add(s.WorkHours)
		late += s.LatenessMinutes
		penalty = penalty.Add(p)
		standard = standard.Add(s.StandardPay)
		ot = ot.Add(s.OTPay)
		net = net.Add(s.NetPay)
		paid = paid.Add(s.AmountPaid)
		remaining = remaining.Add(s.BalanceRemaining)
	}
	rows = append(rows, &ledgerRow{
		Employee:        totalLabel,
		HoursWorked:     hours.StringFixed(2),
		LatenessMinutes: strconv.Itoa(late),
		Penalty:         money(penalty),
		StandardPay:     money(standard),
		OTPay:           money(ot),
		NetPay:          money(net),
		Paid:            money(paid),
		Remaining:       money(remaining),
	})
	return rows
}

// WriteCSV writes one row per shift followed by a TOTAL row.
func WriteCSV(w io.Writer, res *Result) error {
	if err := gocsv.Marshal(ledgerRows(res), w); err != nil {
		return fmt.Errorf("write ledger csv: %w", err)
	}
	return nil
}

// =============================================================================
// XLSX
// =============================================================================

var (
	ledgerHeader   = []string{"Employee", "Date", "Arrival", "Departure", "Hours Worked", "Lateness (min)", "Penalty", "Standard Pay", "OT Pay", "Net Pay", "Paid", "Remaining", "Notes"}
	employeeHeader = []string{"Rank", "Employee", "Days Worked", "A", "B", "C", "Standard", "OT", "OT Hours", "Penalty", "Waiver", "Manual Penalty", "Adjustments", "Net Salary", "Paid", "Remaining"}
	monthHeader    = []string{"Month", "Days Worked", "Standard", "OT", "Penalty", "Net", "Paid"}
)

// WriteXLSX writes a workbook with Ledger, Employees and Months sheets.
func WriteXLSX(w io.Writer, res *Result) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("xlsx header style: %w", err)
	}

	ledger := make([][]interface{}, 0, len(res.Shifts)+1)
	for _, r := range ledgerRows(res) {
		ledger = append(ledger, []interface{}{
			r.Employee, r.Date, r.Arrival, r.Departure, r.HoursWorked, r.LatenessMinutes,
			r.Penalty, r.StandardPay, r.OTPay, r.NetPay, r.Paid, r.Remaining, r.Notes,
		})
	}

	employees := make([][]interface{}, 0, len(res.Employees))
	for _, e := range res.Employees {
		employees = append(employees, []interface{}{
			e.Rank, e.Name, e.DaysWorked,
			e.ShiftCounts[ShiftA], e.ShiftCounts[ShiftB], e.ShiftCounts[ShiftC],
			money(e.TotalStandard), money(e.TotalOT), e.TotalOTHours.StringFixed(2),
			money(e.TotalPenalty), money(e.TotalWaiver), money(e.TotalManualPenalty),
			money(e.TotalManualAdjustment), money(e.NetSalary), money(e.AmountPaid),
			money(e.BalanceRemaining),
		})
	}

	months := make([][]interface{}, 0, len(res.Months))
	for _, m := range res.Months {
		months = append(months, []interface{}{
			m.Label, m.DaysWorked, money(m.Standard), money(m.OT), money(m.Penalty), money(m.Net), money(m.Paid),
		})
	}

	sheets := []struct {
		name   string
		header []string
		rows   [][]interface{}
	}{
		{"Ledger", ledgerHeader, ledger},
		{"Employees", employeeHeader, employees},
		{"Months", monthHeader, months},
	}
	for i, sh := range sheets {
		idx, err := f.NewSheet(sh.name)
		if err != nil {
			return fmt.Errorf("xlsx sheet %s: %w", sh.name, err)
		}
		if i == 0 {
			f.SetActiveSheet(idx)
		}
		if err := writeSheet(f, sh.name, sh.header, sh.rows, headerStyle); err != nil {
			return err
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("xlsx drop default sheet: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write ledger xlsx: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]interface{}, style int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("xlsx %s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("xlsx %s style: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("xlsx %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}
