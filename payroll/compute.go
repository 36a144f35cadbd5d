package payroll

import (
	"io"
	"log/slog"
	"time"

	"github.com/warp/attendance-ledger/attendance"
	"github.com/warp/attendance-ledger/generic"
)

// Options controls one computation. The zero value uses DefaultRules,
// the wall clock and no filter.
type Options struct {
	Rules  *Rules
	Filter Filter
	Now    func() time.Time
	Logger *slog.Logger
}

func (o Options) rules() Rules {
	if o.Rules == nil {
		return DefaultRules()
	}
	return *o.Rules
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}

// Compute runs the whole pipeline: group rows, price each day, replay the
// manager edits, filter, aggregate and assemble. It is pure: the same rows,
// mapping, edits and clock always give the same Result.
func Compute(rows []attendance.RawRow, mapping attendance.ColumnMapping, edits []generic.Edit, opts Options) (*Result, error) {
	if len(rows) == 0 {
		return nil, generic.ErrEmptyDataset
	}
	if err := mapping.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Filter.Validate(); err != nil {
		return nil, err
	}
	rules := opts.rules()
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	log := opts.logger()

	shifts, cleansing := Price(rules, rows, mapping)
	if len(shifts) == 0 {
		return nil, &generic.NoUsableRecordsError{Rows: len(rows), Log: cleansing}
	}

	shifts = ApplyEdits(shifts, edits)
	shifts = opts.Filter.Apply(shifts)

	res := Assemble(rules, shifts, cleansing, todayIn(opts.Now))
	log.Debug("payroll computed",
		slog.Int("rows", len(rows)),
		slog.Int("shifts", len(res.Shifts)),
		slog.Int("edits", len(edits)),
		slog.Int("cleansing_entries", len(cleansing)),
		slog.String("period", res.DateRange.Period.String()),
		slog.String("net_owed", res.Totals.NetOwed.StringFixed(2)),
	)
	return res, nil
}

// Price groups the rows and prices each day, without edits.
func Price(rules Rules, rows []attendance.RawRow, mapping attendance.ColumnMapping) ([]Shift, generic.CleansingLog) {
	days, cleansing := attendance.Group(rows, mapping, attendance.GroupOptions{
		DefaultShiftLength: rules.DefaultShiftLength,
	})
	shifts := make([]Shift, 0, len(days))
	for _, d := range days {
		shifts = append(shifts, Calculate(rules, d))
	}
	return shifts, cleansing
}
