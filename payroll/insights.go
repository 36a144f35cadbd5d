package payroll

import (
	"github.com/shopspring/decimal"
	"github.com/warp/attendance-ledger/generic"
)

// Insights are portfolio-wide facts derived from the whole shift set.
type Insights struct {
	MostReliable         string                        `json:"most_reliable,omitempty"`
	MostReliableDays     int                           `json:"most_reliable_days"`
	TopLateOffender      string                        `json:"top_late_offender,omitempty"`
	TopLateOffenderTotal decimal.Decimal               `json:"top_late_offender_total"`
	PenaltyRecoveryRate  decimal.Decimal               `json:"penalty_recovery_rate"`
	TotalOTHours         decimal.Decimal               `json:"total_ot_hours"`
	ShiftUsage           map[ShiftType]decimal.Decimal `json:"shift_usage"`
	ZeroPenaltyEmployees []string                      `json:"zero_penalty_employees"`
	FutureLiability      decimal.Decimal               `json:"future_liability"`
}

const ratioPlaces = 4

// DeriveInsights computes the insights over shifts and their per-employee
// summaries. Ties for most reliable and top offender go to the name that
// sorts first alphabetically (case-insensitive).
func DeriveInsights(shifts []Shift, employees []EmployeeSummary, today generic.TimePoint) Insights {
	in := Insights{
		TopLateOffenderTotal: decimal.Zero,
		PenaltyRecoveryRate:  decimal.Zero,
		TotalOTHours:         decimal.Zero,
		ShiftUsage:           map[ShiftType]decimal.Decimal{ShiftA: decimal.Zero, ShiftB: decimal.Zero, ShiftC: decimal.Zero},
		ZeroPenaltyEmployees: []string{},
		FutureLiability:      decimal.Zero,
	}

	penalties := decimal.Zero
	otPay := decimal.Zero
	worked := 0
	usage := make(map[ShiftType]int)
	for _, s := range shifts {
		penalties = penalties.Add(s.AttendancePenalty)
		otPay = otPay.Add(s.OTPay)
		in.TotalOTHours = in.TotalOTHours.Add(s.OTHours)
		if s.Worked() {
			worked++
			usage[s.ShiftType]++
		}
		if s.Date.After(today) {
			in.FutureLiability = in.FutureLiability.Add(s.NetPay)
		}
	}

	if denom := penalties.Add(otPay); denom.IsPositive() {
		in.PenaltyRecoveryRate = penalties.DivRound(denom, ratioPlaces)
	}
	if worked > 0 {
		total := decimal.NewFromInt(int64(worked))
		for _, t := range ShiftTypes {
			in.ShiftUsage[t] = decimal.NewFromInt(int64(usage[t])).DivRound(total, ratioPlaces)
		}
	}

	for _, e := range employees {
		if e.DaysWorked > 0 && e.TotalPenalty.IsZero() {
			in.ZeroPenaltyEmployees = append(in.ZeroPenaltyEmployees, e.Name)
		}

		if e.DaysWorked > 0 {
			if in.MostReliable == "" ||
				e.PenaltyFreeDays > in.MostReliableDays ||
				(e.PenaltyFreeDays == in.MostReliableDays && alphabeticallyBefore(e.Name, in.MostReliable)) {
				in.MostReliable = e.Name
				in.MostReliableDays = e.PenaltyFreeDays
			}
		}

		if e.TotalPenalty.IsPositive() {
			if in.TopLateOffender == "" ||
				e.TotalPenalty.GreaterThan(in.TopLateOffenderTotal) ||
				(e.TotalPenalty.Equal(in.TopLateOffenderTotal) && alphabeticallyBefore(e.Name, in.TopLateOffender)) {
				in.TopLateOffender = e.Name
				in.TopLateOffenderTotal = e.TotalPenalty
			}
		}
	}
	return in
}
