package payroll

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/attendance-ledger/generic"
)

// ShiftType is the nominal category an arrival falls into.
type ShiftType string

const (
	ShiftA ShiftType = "A" // early arrivals, nominal start 10:00
	ShiftB ShiftType = "B" // afternoon arrivals, 14:00 (15:00 on weekend eves)
	ShiftC ShiftType = "C" // midday arrivals, 11:00
)

// ShiftTypes lists the categories in report order.
var ShiftTypes = []ShiftType{ShiftA, ShiftB, ShiftC}

// ClassifyShift decides the shift type and its nominal start from the
// arrival's wall-clock minute. Both boundaries belong to type C.
func ClassifyShift(rules Rules, arrival time.Time) (ShiftType, time.Time) {
	m := ClockMinute(generic.MinuteOfDay(arrival))
	day := generic.DayOf(arrival)

	switch {
	case m < rules.EarlyBoundary:
		return ShiftA, day.At(rules.StartA.Hour(), rules.StartA.Minute(), 0)
	case m <= rules.LateBoundary:
		return ShiftC, day.At(rules.StartC.Hour(), rules.StartC.Minute(), 0)
	default:
		start := rules.StartB
		if rules.isWeekendEve(arrival.Weekday()) {
			start = rules.StartBEves
		}
		return ShiftB, day.At(start.Hour(), start.Minute(), 0)
	}
}

// PenaltyFor returns the attendance penalty for a lateness in minutes.
func PenaltyFor(rules Rules, latenessMinutes int) decimal.Decimal {
	for _, tier := range rules.PenaltyTiers {
		if latenessMinutes >= tier.MinMinutes {
			return tier.Amount
		}
	}
	return decimal.Zero
}
