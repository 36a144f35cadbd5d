package attendance

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/attendance-ledger/generic"
)

// DefaultShiftLength is assumed when a day has a check-in but no check-out.
const DefaultShiftLength = 9 * time.Hour

// headerLiterals are names that only appear when a header row was pasted
// back into the data.
var headerLiterals = map[string]bool{
	"name":          true,
	"employee_name": true,
}

// GroupOptions tunes the grouping pass.
type GroupOptions struct {
	DefaultShiftLength time.Duration
}

// NormalizeName trims and collapses internal whitespace.
func NormalizeName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// IdentityKey is the case-insensitive grouping identity of an employee.
func IdentityKey(name string) string {
	return strings.ToLower(NormalizeName(name))
}

type dayGroup struct {
	day       Day
	checkIns  []time.Time
	checkOuts []time.Time
}

// Group applies the mapping, drops unusable rows and merges the remaining
// ones into one Day per (employee, date), in first-seen order.
func Group(rows []RawRow, mapping ColumnMapping, opts GroupOptions) ([]Day, generic.CleansingLog) {
	shiftLength := opts.DefaultShiftLength
	if shiftLength <= 0 {
		shiftLength = DefaultShiftLength
	}

	var log generic.CleansingLog
	index := make(map[string]*dayGroup)
	var order []string

	for i, raw := range rows {
		rec := mapping.Apply(raw, i+1)

		name := NormalizeName(rec.Name)
		if name == "" {
			log = append(log, generic.CleansingEntry{Row: rec.Row, Kind: CleanMissingName, Detail: "empty employee name"})
			continue
		}
		if headerLiterals[strings.ToLower(name)] {
			log = append(log, generic.CleansingEntry{Row: rec.Row, Kind: CleanHeaderRow, Detail: "repeated header row: " + name})
			continue
		}

		date, err := ParseDate(rec.Date)
		if err != nil {
			log = append(log, generic.CleansingEntry{Row: rec.Row, Kind: CleanUnparseableDate, Detail: err.Error()})
			continue
		}

		day := generic.DayOf(date)
		key := strings.ToLower(name) + "|" + day.String()
		g, ok := index[key]
		if !ok {
			g = &dayGroup{day: Day{
				Key:           key,
				Employee:      name,
				Date:          day,
				AmountPaid:    decimal.Zero,
				ManualPenalty: decimal.Zero,
			}}
			index[key] = g
			order = append(order, key)
		}

		g.day.Rows = append(g.day.Rows, rec.Row)
		if c, ok := ParseTime(rec.CheckIn); ok {
			g.checkIns = append(g.checkIns, c.On(date))
		}
		if c, ok := ParseTime(rec.CheckOut); ok {
			g.checkOuts = append(g.checkOuts, c.On(date))
		}
		g.day.AmountPaid = g.day.AmountPaid.Add(ParseCurrency(rec.AmountPaid))
		g.day.ManualPenalty = g.day.ManualPenalty.Add(ParseCurrency(rec.ManualPenalty))
	}

	days := make([]Day, 0, len(order))
	for _, key := range order {
		g := index[key]
		d := g.day

		if len(g.checkIns) == 0 {
			log = append(log, generic.CleansingEntry{
				Row:    d.Rows[0],
				Kind:   CleanMissingCheckIn,
				Detail: d.Employee + " on " + d.Date.String() + " has no check-in",
			})
			days = append(days, d)
			continue
		}

		d.HasCheckIn = true
		d.ActualIn = earliest(g.checkIns)
		if len(g.checkOuts) == 0 {
			d.ActualOut = d.ActualIn.Add(shiftLength)
		} else {
			d.CheckOutFound = true
			d.ActualOut = latest(g.checkOuts)
			if d.ActualOut.Before(d.ActualIn) {
				d.ActualOut = d.ActualOut.Add(24 * time.Hour)
				d.Overnight = true
			}
		}
		days = append(days, d)
	}
	return days, log
}

func earliest(ts []time.Time) time.Time {
	m := ts[0]
	for _, t := range ts[1:] {
		if t.Before(m) {
			m = t
		}
	}
	return m
}

func latest(ts []time.Time) time.Time {
	m := ts[0]
	for _, t := range ts[1:] {
		if t.After(m) {
			m = t
		}
	}
	return m
}
