package payroll

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/attendance-ledger/attendance"
	"github.com/warp/attendance-ledger/generic"
)

// =============================================================================
// SHIFT - One employee, one calendar day
// =============================================================================

type Shift struct {
	ID         generic.ShiftID   `json:"id"`
	Employee   string            `json:"employee"`
	Date       generic.TimePoint `json:"date"`
	HasCheckIn bool              `json:"has_check_in"`
	ActualIn   time.Time         `json:"actual_in"`
	ActualOut  time.Time         `json:"actual_out"`
	ShiftType  ShiftType         `json:"shift_type"`
	ShiftStart time.Time         `json:"shift_start"`

	LatenessMinutes   int             `json:"lateness_minutes"`
	AttendancePenalty decimal.Decimal `json:"attendance_penalty"`
	ManualPenalty     decimal.Decimal `json:"manual_penalty"`
	PenaltyWaiver     decimal.Decimal `json:"penalty_waiver"`
	ManualAdjustment  decimal.Decimal `json:"manual_adjustment"`

	WorkHours     decimal.Decimal `json:"work_hours"`
	DurationHours decimal.Decimal `json:"duration_hours"`
	OTHours       decimal.Decimal `json:"ot_hours"`
	OTPay         decimal.Decimal `json:"ot_pay"`
	StandardPay   decimal.Decimal `json:"standard_pay"`

	NetPay           decimal.Decimal `json:"net_pay"`
	AmountPaid       decimal.Decimal `json:"amount_paid"`
	BalanceRemaining decimal.Decimal `json:"balance_remaining"`
	Notes            string          `json:"notes,omitempty"`
}

// Worked reports whether the day counts toward days worked. A placeholder
// day has neither hours nor pay; a day priced only by adjustments still counts.
func (s Shift) Worked() bool {
	return !s.NetPay.IsZero() || s.WorkHours.IsPositive()
}

// EffectivePenalty is the attendance penalty left after any waiver.
func (s Shift) EffectivePenalty() decimal.Decimal {
	return s.AttendancePenalty.Sub(s.PenaltyWaiver)
}

// Waived reports whether the attendance penalty is currently waived.
func (s Shift) Waived() bool {
	return s.PenaltyWaiver.IsPositive()
}

// Rederive recomputes the two derived money fields from the others.
func (s Shift) Rederive() Shift {
	s.NetPay = s.StandardPay.
		Add(s.OTPay).
		Sub(s.EffectivePenalty()).
		Sub(s.ManualPenalty).
		Sub(s.ManualAdjustment)
	s.BalanceRemaining = s.NetPay.Sub(s.AmountPaid)
	return s
}

// =============================================================================
// SHIFT IDS
// =============================================================================

var shiftNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("attendance-ledger/shift"))

// ShiftIDFor derives the stable id of an (employee, day) pair, so edits
// addressed by id survive recomputation.
func ShiftIDFor(employee string, date generic.TimePoint) generic.ShiftID {
	key := attendance.IdentityKey(employee) + "|" + date.String()
	return generic.ShiftID(uuid.NewSHA1(shiftNamespace, []byte(key)).String())
}

// =============================================================================
// CALCULATOR
// =============================================================================

// Calculate prices one grouped day.
func Calculate(rules Rules, day attendance.Day) Shift {
	s := Shift{
		ID:                ShiftIDFor(day.Employee, day.Date),
		Employee:          day.Employee,
		Date:              day.Date,
		ShiftType:         ShiftA,
		AttendancePenalty: decimal.Zero,
		ManualPenalty:     decimal.Zero,
		PenaltyWaiver:     decimal.Zero,
		ManualAdjustment:  decimal.Zero,
		WorkHours:         decimal.Zero,
		DurationHours:     decimal.Zero,
		OTHours:           decimal.Zero,
		OTPay:             decimal.Zero,
		StandardPay:       decimal.Zero,
		AmountPaid:        day.AmountPaid,
	}

	if !day.HasCheckIn {
		return s.Rederive()
	}

	s.HasCheckIn = true
	s.ActualIn = day.ActualIn
	s.ActualOut = day.ActualOut
	s.ShiftType, s.ShiftStart = ClassifyShift(rules, day.ActualIn)

	late := int(day.ActualIn.Sub(s.ShiftStart) / time.Minute)
	if late < 0 {
		late = 0
	}
	s.LatenessMinutes = late
	s.AttendancePenalty = PenaltyFor(rules, late)
	s.ManualPenalty = day.ManualPenalty

	worked := day.ActualOut.Sub(day.ActualIn)
	s.WorkHours = decimal.NewFromInt(int64(worked / time.Second)).
		Div(decimal.NewFromInt(3600)).
		Round(rules.HourPlaces)
	s.DurationHours = nonNegative(s.WorkHours.Sub(rules.BreakHours))
	s.OTHours = nonNegative(s.WorkHours.Sub(rules.OTThresholdHours))
	s.OTPay = s.OTHours.Mul(rules.OTRate).Round(rules.MoneyPlaces)
	s.StandardPay = rules.StandardPay

	return s.Rederive()
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
