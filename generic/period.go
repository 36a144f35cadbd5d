package generic

// =============================================================================
// PERIOD - Inclusive range of calendar days
// =============================================================================

// Period is an inclusive [Start, End] day range. A zero Start or End leaves
// that side open, which is how ledger filters express "from" or "to" alone.
//
// Examples:
//   - Observed range of a ledger: first shift date .. last shift date
//   - March payroll run: Mar 1 .. Mar 31
type Period struct {
	Start TimePoint
	End   TimePoint
}

// Contains returns true if the time point is within the period [Start, End]
func (p Period) Contains(t TimePoint) bool {
	if !p.Start.IsZero() && t.Before(p.Start) {
		return false
	}
	if !p.End.IsZero() && t.After(p.End) {
		return false
	}
	return true
}

// IsOpen reports whether neither bound is set.
func (p Period) IsOpen() bool { return p.Start.IsZero() && p.End.IsZero() }

// Valid reports whether a closed period ends on or after its start.
func (p Period) Valid() bool {
	if p.Start.IsZero() || p.End.IsZero() {
		return true
	}
	return p.End.AfterOrEqual(p.Start)
}

// Extend grows the period so that it covers t.
func (p Period) Extend(t TimePoint) Period {
	if p.Start.IsZero() || t.Before(p.Start) {
		p.Start = t
	}
	if p.End.IsZero() || t.After(p.End) {
		p.End = t
	}
	return p
}

// Days returns all days in the period as a slice of TimePoints.
func (p Period) Days() []TimePoint {
	if p.Start.IsZero() || p.End.IsZero() {
		return nil
	}
	var days []TimePoint
	current := p.Start
	for current.BeforeOrEqual(p.End) {
		days = append(days, current)
		current = current.AddDays(1)
	}
	return days
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// MonthPeriod returns the calendar month containing date.
func MonthPeriod(date TimePoint) Period {
	return Period{
		Start: StartOfMonth(date.Year(), date.Month()),
		End:   EndOfMonth(date.Year(), date.Month()),
	}
}
