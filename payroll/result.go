package payroll

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/attendance-ledger/attendance"
	"github.com/warp/attendance-ledger/generic"
)

// =============================================================================
// RESULT - Immutable ledger snapshot
// =============================================================================

type Totals struct {
	Standard         decimal.Decimal `json:"standard"`
	OT               decimal.Decimal `json:"ot"`
	OTHours          decimal.Decimal `json:"ot_hours"`
	Penalty          decimal.Decimal `json:"penalty"`
	ManualPenalty    decimal.Decimal `json:"manual_penalty"`
	ManualAdjustment decimal.Decimal `json:"manual_adjustment"`
	Waiver           decimal.Decimal `json:"waiver"`
	NetOwed          decimal.Decimal `json:"net_owed"`
	Paid             decimal.Decimal `json:"paid"`
	Remaining        decimal.Decimal `json:"remaining"`
	DaysWorked       int             `json:"days_worked"`
	LatenessMinutes  int             `json:"lateness_minutes"`
}

type DateRange struct {
	Period generic.Period `json:"-"`
	From   string         `json:"from"`
	To     string         `json:"to"`
}

// Result is built once per computation and never mutated afterwards;
// a manager edit produces a new Result.
type Result struct {
	Shifts       []Shift              `json:"shifts"`
	Employees    []EmployeeSummary    `json:"employees"`
	Months       []MonthlyStat        `json:"months"`
	Insights     Insights             `json:"insights"`
	Totals       Totals               `json:"totals"`
	Efficiency   decimal.Decimal      `json:"efficiency"`
	CleansingLog generic.CleansingLog `json:"cleansing_log"`
	DateRange    DateRange            `json:"date_range"`
	GeneratedFor generic.TimePoint    `json:"generated_for"`
}

// Shift returns the shift with the given id.
func (r *Result) Shift(id generic.ShiftID) (Shift, bool) {
	for _, s := range r.Shifts {
		if s.ID == id {
			return s, true
		}
	}
	return Shift{}, false
}

// SortShifts orders shifts by date, then by employee name.
func SortShifts(shifts []Shift) {
	sort.SliceStable(shifts, func(i, j int) bool {
		a, b := shifts[i], shifts[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		ka, kb := attendance.IdentityKey(a.Employee), attendance.IdentityKey(b.Employee)
		if ka != kb {
			return ka < kb
		}
		return a.Employee < b.Employee
	})
}

// Assemble combines sorted shifts, aggregates and the cleansing log into a Result.
func Assemble(rules Rules, shifts []Shift, log generic.CleansingLog, today generic.TimePoint) *Result {
	sorted := make([]Shift, len(shifts))
	copy(sorted, shifts)
	SortShifts(sorted)

	agg := Aggregate(sorted)

	totals := Totals{
		Standard:         decimal.Zero,
		OT:               decimal.Zero,
		OTHours:          decimal.Zero,
		Penalty:          decimal.Zero,
		ManualPenalty:    decimal.Zero,
		ManualAdjustment: decimal.Zero,
		Waiver:           decimal.Zero,
		NetOwed:          decimal.Zero,
		Paid:             decimal.Zero,
		Remaining:        decimal.Zero,
	}
	var period generic.Period
	for _, s := range sorted {
		totals.Standard = totals.Standard.Add(s.StandardPay)
		totals.OT = totals.OT.Add(s.OTPay)
		totals.OTHours = totals.OTHours.Add(s.OTHours)
		totals.Penalty = totals.Penalty.Add(s.AttendancePenalty)
		totals.ManualPenalty = totals.ManualPenalty.Add(s.ManualPenalty)
		totals.ManualAdjustment = totals.ManualAdjustment.Add(s.ManualAdjustment)
		totals.Waiver = totals.Waiver.Add(s.PenaltyWaiver)
		totals.NetOwed = totals.NetOwed.Add(s.NetPay)
		totals.Paid = totals.Paid.Add(s.AmountPaid)
		totals.Remaining = totals.Remaining.Add(s.BalanceRemaining)
		totals.LatenessMinutes += s.LatenessMinutes
		if s.Worked() {
			totals.DaysWorked++
		}
		period = period.Extend(s.Date)
	}

	if log == nil {
		log = generic.CleansingLog{}
	}

	return &Result{
		Shifts:       sorted,
		Employees:    agg.Employees,
		Months:       agg.Months,
		Insights:     DeriveInsights(sorted, agg.Employees, today),
		Totals:       totals,
		Efficiency:   Efficiency(rules, totals.Penalty, totals.DaysWorked),
		CleansingLog: log,
		DateRange: DateRange{
			Period: period,
			From:   period.Start.Display(),
			To:     period.End.Display(),
		},
		GeneratedFor: today,
	}
}

// Efficiency is 1 - penalties / (workedDays * unit), with at least one day
// in the divisor.
func Efficiency(rules Rules, penalties decimal.Decimal, workedDays int) decimal.Decimal {
	days := workedDays
	if days < 1 {
		days = 1
	}
	divisor := decimal.NewFromInt(int64(days)).Mul(rules.EfficiencyUnit)
	return decimal.NewFromInt(1).Sub(penalties.DivRound(divisor, ratioPlaces))
}

// todayIn resolves the clock used for future-liability.
func todayIn(now func() time.Time) generic.TimePoint {
	if now == nil {
		return generic.Today()
	}
	return generic.DayOf(now())
}
