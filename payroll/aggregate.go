package payroll

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/attendance-ledger/attendance"
	"github.com/warp/attendance-ledger/generic"
)

// =============================================================================
// FILTER
// =============================================================================

// Filter narrows the shift list before aggregation. Zero value keeps everything.
type Filter struct {
	Employee string         // case-insensitive identity match
	Period   generic.Period // inclusive; open sides allowed
}

func (f Filter) Validate() error {
	if !f.Period.Valid() {
		return generic.ErrInvalidPeriod
	}
	return nil
}

func (f Filter) Match(s Shift) bool {
	if f.Employee != "" && attendance.IdentityKey(f.Employee) != attendance.IdentityKey(s.Employee) {
		return false
	}
	return f.Period.Contains(s.Date)
}

func (f Filter) Apply(shifts []Shift) []Shift {
	if f.Employee == "" && f.Period.IsOpen() {
		return shifts
	}
	out := make([]Shift, 0, len(shifts))
	for _, s := range shifts {
		if f.Match(s) {
			out = append(out, s)
		}
	}
	return out
}

// =============================================================================
// EMPLOYEE SUMMARY
// =============================================================================

type EmployeeSummary struct {
	Rank                  int               `json:"rank"`
	Name                  string            `json:"name"`
	DaysWorked            int               `json:"days_worked"`
	ShiftCounts           map[ShiftType]int `json:"shift_counts"`
	TotalStandard         decimal.Decimal   `json:"total_standard"`
	TotalOT               decimal.Decimal   `json:"total_ot"`
	TotalOTHours          decimal.Decimal   `json:"total_ot_hours"`
	TotalPenalty          decimal.Decimal   `json:"total_penalty"`
	TotalManualPenalty    decimal.Decimal   `json:"total_manual_penalty"`
	TotalManualAdjustment decimal.Decimal   `json:"total_manual_adjustment"`
	TotalWaiver           decimal.Decimal   `json:"total_waiver"`
	NetSalary             decimal.Decimal   `json:"net_salary"`
	AmountPaid            decimal.Decimal   `json:"amount_paid"`
	BalanceRemaining      decimal.Decimal   `json:"balance_remaining"`
	PenaltyFreeDays       int               `json:"penalty_free_days"`
	LatenessMinutes       int               `json:"lateness_minutes"`
}

func newEmployeeSummary(name string) *EmployeeSummary {
	return &EmployeeSummary{
		Name:                  name,
		ShiftCounts:           map[ShiftType]int{ShiftA: 0, ShiftB: 0, ShiftC: 0},
		TotalStandard:         decimal.Zero,
		TotalOT:               decimal.Zero,
		TotalOTHours:          decimal.Zero,
		TotalPenalty:          decimal.Zero,
		TotalManualPenalty:    decimal.Zero,
		TotalManualAdjustment: decimal.Zero,
		TotalWaiver:           decimal.Zero,
		NetSalary:             decimal.Zero,
		AmountPaid:            decimal.Zero,
		BalanceRemaining:      decimal.Zero,
	}
}

func (e *EmployeeSummary) add(s Shift) {
	e.TotalStandard = e.TotalStandard.Add(s.StandardPay)
	e.TotalOT = e.TotalOT.Add(s.OTPay)
	e.TotalOTHours = e.TotalOTHours.Add(s.OTHours)
	e.TotalPenalty = e.TotalPenalty.Add(s.AttendancePenalty)
	e.TotalManualPenalty = e.TotalManualPenalty.Add(s.ManualPenalty)
	e.TotalManualAdjustment = e.TotalManualAdjustment.Add(s.ManualAdjustment)
	e.TotalWaiver = e.TotalWaiver.Add(s.PenaltyWaiver)
	e.NetSalary = e.NetSalary.Add(s.NetPay)
	e.AmountPaid = e.AmountPaid.Add(s.AmountPaid)
	e.BalanceRemaining = e.BalanceRemaining.Add(s.BalanceRemaining)
	e.LatenessMinutes += s.LatenessMinutes

	if !s.Worked() {
		return
	}
	e.DaysWorked++
	e.ShiftCounts[s.ShiftType]++
	if s.AttendancePenalty.IsZero() {
		e.PenaltyFreeDays++
	}
}

// =============================================================================
// MONTHLY STAT
// =============================================================================

type MonthlyStat struct {
	Month      generic.YearMonth `json:"month"`
	Label      string            `json:"label"`
	DaysWorked int               `json:"days_worked"`
	Standard   decimal.Decimal   `json:"standard"`
	OT         decimal.Decimal   `json:"ot"`
	Penalty    decimal.Decimal   `json:"penalty"`
	Net        decimal.Decimal   `json:"net"`
	Paid       decimal.Decimal   `json:"paid"`

	// Period is the whole calendar month, not just the days with shifts.
	Period       generic.Period `json:"-"`
	CalendarDays int            `json:"calendar_days"`
}

func (m *MonthlyStat) add(s Shift) {
	m.Standard = m.Standard.Add(s.StandardPay)
	m.OT = m.OT.Add(s.OTPay)
	m.Penalty = m.Penalty.Add(s.AttendancePenalty)
	m.Net = m.Net.Add(s.NetPay)
	m.Paid = m.Paid.Add(s.AmountPaid)
	if s.Worked() {
		m.DaysWorked++
	}
}

// =============================================================================
// AGGREGATION
// =============================================================================

// Aggregation is the single-pass fold of a shift list.
type Aggregation struct {
	Employees []EmployeeSummary
	Months    []MonthlyStat
}

// Aggregate groups shifts by employee identity (first-seen order, then
// ranked by net salary, stable) and by calendar month (chronological).
func Aggregate(shifts []Shift) Aggregation {
	employees := make(map[string]*EmployeeSummary)
	var employeeOrder []string
	months := make(map[generic.YearMonth]*MonthlyStat)

	for _, s := range shifts {
		key := attendance.IdentityKey(s.Employee)
		e, ok := employees[key]
		if !ok {
			e = newEmployeeSummary(s.Employee)
			employees[key] = e
			employeeOrder = append(employeeOrder, key)
		}
		e.add(s)

		ym := s.Date.YearMonth()
		m, ok := months[ym]
		if !ok {
			month := generic.MonthPeriod(s.Date)
			m = &MonthlyStat{
				Month:        ym,
				Label:        ym.Label(),
				Period:       month,
				CalendarDays: len(month.Days()),
				Standard:     decimal.Zero,
				OT:           decimal.Zero,
				Penalty:      decimal.Zero,
				Net:          decimal.Zero,
				Paid:         decimal.Zero,
			}
			months[ym] = m
		}
		m.add(s)
	}

	out := Aggregation{
		Employees: make([]EmployeeSummary, 0, len(employeeOrder)),
		Months:    make([]MonthlyStat, 0, len(months)),
	}
	for _, key := range employeeOrder {
		out.Employees = append(out.Employees, *employees[key])
	}
	sort.SliceStable(out.Employees, func(i, j int) bool {
		return out.Employees[i].NetSalary.GreaterThan(out.Employees[j].NetSalary)
	})
	for i := range out.Employees {
		out.Employees[i].Rank = i + 1
	}

	for _, m := range months {
		out.Months = append(out.Months, *m)
	}
	sort.Slice(out.Months, func(i, j int) bool {
		return out.Months[i].Month.Before(out.Months[j].Month)
	})
	return out
}

// alphabeticallyBefore is the documented tie-break for insight picks.
func alphabeticallyBefore(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la != lb {
		return la < lb
	}
	return a < b
}
