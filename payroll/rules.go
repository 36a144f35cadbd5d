/*
Package payroll computes per-shift pay and the aggregated ledger.

PURPOSE:
  Takes the grouped attendance days, classifies each into a shift type,
  applies the lateness, overtime and manual rules, replays manager edits
  and folds the shifts into employee, month and portfolio figures.

KEY CONCEPTS:
  - Rules:    Business constants (thresholds, rates, tiers). Defaults
              reproduce the house rules exactly; factory/ can load others.
  - Shift:    One employee, one calendar day, fully priced.
  - Result:   The immutable ledger snapshot handed to renderers/exporters.

INVARIANTS (checked in tests after every manager action):
  NetPay           == StandardPay + OTPay - (AttendancePenalty - PenaltyWaiver)
                      - ManualPenalty - ManualAdjustment
  BalanceRemaining == NetPay - AmountPaid

SEE ALSO:
  - attendance/normalize.go: Produces the days priced here
  - factory/rules.go: YAML/JSON rule documents
*/
package payroll

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RULES
// =============================================================================

// PenaltyTier applies Amount when lateness reaches MinMinutes.
type PenaltyTier struct {
	MinMinutes int
	Amount     decimal.Decimal
}

// ClockMinute is a wall-clock time expressed as minutes past midnight.
type ClockMinute int

func At(hour, minute int) ClockMinute { return ClockMinute(hour*60 + minute) }

func (c ClockMinute) Hour() int   { return int(c) / 60 }
func (c ClockMinute) Minute() int { return int(c) % 60 }
func (c ClockMinute) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

type Rules struct {
	// Classification thresholds on arrival minute-of-day.
	EarlyBoundary ClockMinute // arrivals strictly before this are type A
	LateBoundary  ClockMinute // arrivals strictly after this are type B

	// Nominal shift starts.
	StartA      ClockMinute
	StartC      ClockMinute
	StartB      ClockMinute
	StartBEves  ClockMinute // type B start on WeekendEves
	WeekendEves []time.Weekday

	// Tiers are evaluated highest MinMinutes first.
	PenaltyTiers []PenaltyTier

	StandardPay        decimal.Decimal
	OTThresholdHours   decimal.Decimal
	OTRate             decimal.Decimal
	BreakHours         decimal.Decimal
	DefaultShiftLength time.Duration

	// EfficiencyUnit is the per-day penalty ceiling used by the efficiency score.
	EfficiencyUnit decimal.Decimal

	MoneyPlaces int32
	HourPlaces  int32
}

// DefaultRules returns the house rules.
func DefaultRules() Rules {
	return Rules{
		EarlyBoundary: At(10, 30),
		LateBoundary:  At(12, 30),
		StartA:        At(10, 0),
		StartC:        At(11, 0),
		StartB:        At(14, 0),
		StartBEves:    At(15, 0),
		WeekendEves:   []time.Weekday{time.Thursday, time.Friday},
		PenaltyTiers: []PenaltyTier{
			{MinMinutes: 60, Amount: decimal.NewFromInt(10)},
			{MinMinutes: 20, Amount: decimal.NewFromInt(5)},
			{MinMinutes: 10, Amount: decimal.NewFromInt(3)},
		},
		StandardPay:        decimal.NewFromInt(10),
		OTThresholdHours:   decimal.NewFromInt(9),
		OTRate:             decimal.RequireFromString("1.56"),
		BreakHours:         decimal.NewFromInt(1),
		DefaultShiftLength: 9 * time.Hour,
		EfficiencyUnit:     decimal.NewFromInt(10),
		MoneyPlaces:        2,
		HourPlaces:         4,
	}
}

// Validate rejects rule sets the calculator cannot apply consistently.
func (r Rules) Validate() error {
	if r.EarlyBoundary > r.LateBoundary {
		return fmt.Errorf("early boundary %s is after late boundary %s", r.EarlyBoundary, r.LateBoundary)
	}
	for _, c := range []ClockMinute{r.EarlyBoundary, r.LateBoundary, r.StartA, r.StartB, r.StartC, r.StartBEves} {
		if c < 0 || c >= 24*60 {
			return fmt.Errorf("clock time %d out of range", int(c))
		}
	}
	for i, t := range r.PenaltyTiers {
		if t.MinMinutes < 0 || t.Amount.IsNegative() {
			return fmt.Errorf("penalty tier %d is negative", i)
		}
		if i > 0 && t.MinMinutes >= r.PenaltyTiers[i-1].MinMinutes {
			return fmt.Errorf("penalty tiers must be ordered by descending minutes")
		}
		if i > 0 && t.Amount.GreaterThan(r.PenaltyTiers[i-1].Amount) {
			return fmt.Errorf("penalty tier %d pays more than a longer lateness", i)
		}
	}
	if r.StandardPay.IsNegative() || r.OTRate.IsNegative() || r.OTThresholdHours.IsNegative() || r.BreakHours.IsNegative() {
		return fmt.Errorf("pay constants must not be negative")
	}
	if r.DefaultShiftLength <= 0 {
		return fmt.Errorf("default shift length must be positive")
	}
	if !r.EfficiencyUnit.IsPositive() {
		return fmt.Errorf("efficiency unit must be positive")
	}
	return nil
}

func (r Rules) isWeekendEve(d time.Weekday) bool {
	for _, w := range r.WeekendEves {
		if w == d {
			return true
		}
	}
	return false
}
