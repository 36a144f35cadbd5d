/*
Package factory provides YAML/JSON to Go rule conversion.

PURPOSE:
  Converts rule documents into payroll.Rules and column mappings into
  attendance.ColumnMapping. Payroll constants can be tuned per site
  without code changes; every field left out keeps the house default.

DOCUMENT SCHEMA (YAML shown; the same keys work as JSON):
  early_boundary: "10:30"
  late_boundary: "12:30"
  starts:
    a: "10:00"
    c: "11:00"
    b: "14:00"
    b_eves: "15:00"
  weekend_eves: [thursday, friday]
  penalty_tiers:
    - {min_minutes: 60, amount: "10"}
    - {min_minutes: 20, amount: "5"}
    - {min_minutes: 10, amount: "3"}
  standard_pay: "10"
  ot_threshold_hours: "9"
  ot_rate: "1.56"
  break_hours: "1"
  default_shift_length: 9h

USAGE:
  rules, err := factory.ParseRules(data)
  res, err := payroll.Compute(rows, mapping, edits, payroll.Options{Rules: &rules})

SEE ALSO:
  - payroll/rules.go: Rules type and defaults
  - config/config.go: RULES_FILE points at one of these documents
*/
package factory

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/attendance-ledger/attendance"
	"github.com/warp/attendance-ledger/payroll"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// DOCUMENT TYPES
// =============================================================================

// RulesDocument is the serialized form of payroll.Rules. Nil fields keep defaults.
type RulesDocument struct {
	EarlyBoundary      *string        `yaml:"early_boundary,omitempty" json:"early_boundary,omitempty"`
	LateBoundary       *string        `yaml:"late_boundary,omitempty" json:"late_boundary,omitempty"`
	Starts             *StartsDoc     `yaml:"starts,omitempty" json:"starts,omitempty"`
	WeekendEves        []string       `yaml:"weekend_eves,omitempty" json:"weekend_eves,omitempty"`
	PenaltyTiers       []TierDocument `yaml:"penalty_tiers,omitempty" json:"penalty_tiers,omitempty"`
	StandardPay        *string        `yaml:"standard_pay,omitempty" json:"standard_pay,omitempty"`
	OTThresholdHours   *string        `yaml:"ot_threshold_hours,omitempty" json:"ot_threshold_hours,omitempty"`
	OTRate             *string        `yaml:"ot_rate,omitempty" json:"ot_rate,omitempty"`
	BreakHours         *string        `yaml:"break_hours,omitempty" json:"break_hours,omitempty"`
	DefaultShiftLength *string        `yaml:"default_shift_length,omitempty" json:"default_shift_length,omitempty"`
	EfficiencyUnit     *string        `yaml:"efficiency_unit,omitempty" json:"efficiency_unit,omitempty"`
}

type StartsDoc struct {
	A     *string `yaml:"a,omitempty" json:"a,omitempty"`
	C     *string `yaml:"c,omitempty" json:"c,omitempty"`
	B     *string `yaml:"b,omitempty" json:"b,omitempty"`
	BEves *string `yaml:"b_eves,omitempty" json:"b_eves,omitempty"`
}

type TierDocument struct {
	MinMinutes int    `yaml:"min_minutes" json:"min_minutes"`
	Amount     string `yaml:"amount" json:"amount"`
}

// =============================================================================
// RULES
// =============================================================================

// ParseRules parses a YAML or JSON rules document on top of the defaults.
func ParseRules(data []byte) (payroll.Rules, error) {
	var doc RulesDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return payroll.Rules{}, fmt.Errorf("failed to parse rules document: %w", err)
	}
	return FromDocument(doc)
}

// LoadRules reads a rules document from disk.
func LoadRules(path string) (payroll.Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return payroll.Rules{}, fmt.Errorf("read rules %s: %w", path, err)
	}
	return ParseRules(data)
}

type clockField struct {
	field string
	src   *string
	dst   *payroll.ClockMinute
}

// FromDocument converts a RulesDocument into validated payroll.Rules.
func FromDocument(doc RulesDocument) (payroll.Rules, error) {
	r := payroll.DefaultRules()
	var err error

	clocks := []clockField{
		{"early_boundary", doc.EarlyBoundary, &r.EarlyBoundary},
		{"late_boundary", doc.LateBoundary, &r.LateBoundary},
	}
	if doc.Starts != nil {
		clocks = append(clocks,
			clockField{"starts.a", doc.Starts.A, &r.StartA},
			clockField{"starts.c", doc.Starts.C, &r.StartC},
			clockField{"starts.b", doc.Starts.B, &r.StartB},
			clockField{"starts.b_eves", doc.Starts.BEves, &r.StartBEves},
		)
	}
	for _, c := range clocks {
		if c.src == nil {
			continue
		}
		if *c.dst, err = parseClock(*c.src); err != nil {
			return payroll.Rules{}, fmt.Errorf("%s: %w", c.field, err)
		}
	}

	if len(doc.WeekendEves) > 0 {
		r.WeekendEves = r.WeekendEves[:0:0]
		for _, name := range doc.WeekendEves {
			d, err := parseWeekday(name)
			if err != nil {
				return payroll.Rules{}, fmt.Errorf("weekend_eves: %w", err)
			}
			r.WeekendEves = append(r.WeekendEves, d)
		}
	}

	if len(doc.PenaltyTiers) > 0 {
		tiers := make([]payroll.PenaltyTier, 0, len(doc.PenaltyTiers))
		for i, t := range doc.PenaltyTiers {
			amount, err := decimal.NewFromString(strings.TrimSpace(t.Amount))
			if err != nil {
				return payroll.Rules{}, fmt.Errorf("penalty_tiers[%d].amount: %w", i, err)
			}
			tiers = append(tiers, payroll.PenaltyTier{MinMinutes: t.MinMinutes, Amount: amount})
		}
		sort.SliceStable(tiers, func(i, j int) bool { return tiers[i].MinMinutes > tiers[j].MinMinutes })
		r.PenaltyTiers = tiers
	}

	amounts := []struct {
		field string
		src   *string
		dst   *decimal.Decimal
	}{
		{"standard_pay", doc.StandardPay, &r.StandardPay},
		{"ot_threshold_hours", doc.OTThresholdHours, &r.OTThresholdHours},
		{"ot_rate", doc.OTRate, &r.OTRate},
		{"break_hours", doc.BreakHours, &r.BreakHours},
		{"efficiency_unit", doc.EfficiencyUnit, &r.EfficiencyUnit},
	}
	for _, a := range amounts {
		if a.src == nil {
			continue
		}
		if *a.dst, err = decimal.NewFromString(strings.TrimSpace(*a.src)); err != nil {
			return payroll.Rules{}, fmt.Errorf("%s: %w", a.field, err)
		}
	}

	if doc.DefaultShiftLength != nil {
		if r.DefaultShiftLength, err = time.ParseDuration(*doc.DefaultShiftLength); err != nil {
			return payroll.Rules{}, fmt.Errorf("default_shift_length: %w", err)
		}
	}

	if err := r.Validate(); err != nil {
		return payroll.Rules{}, fmt.Errorf("invalid rules: %w", err)
	}
	return r, nil
}

// ToDocument renders rules back into a fully populated document.
func ToDocument(r payroll.Rules) RulesDocument {
	str := func(s string) *string { return &s }
	doc := RulesDocument{
		EarlyBoundary: str(r.EarlyBoundary.String()),
		LateBoundary:  str(r.LateBoundary.String()),
		Starts: &StartsDoc{
			A:     str(r.StartA.String()),
			C:     str(r.StartC.String()),
			B:     str(r.StartB.String()),
			BEves: str(r.StartBEves.String()),
		},
		StandardPay:        str(r.StandardPay.String()),
		OTThresholdHours:   str(r.OTThresholdHours.String()),
		OTRate:             str(r.OTRate.String()),
		BreakHours:         str(r.BreakHours.String()),
		DefaultShiftLength: str(r.DefaultShiftLength.String()),
		EfficiencyUnit:     str(r.EfficiencyUnit.String()),
	}
	for _, d := range r.WeekendEves {
		doc.WeekendEves = append(doc.WeekendEves, strings.ToLower(d.String()))
	}
	for _, t := range r.PenaltyTiers {
		doc.PenaltyTiers = append(doc.PenaltyTiers, TierDocument{MinMinutes: t.MinMinutes, Amount: t.Amount.String()})
	}
	return doc
}

func parseClock(s string) (payroll.ClockMinute, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("clock %q must be HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("clock %q has an invalid hour", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock %q has an invalid minute", s)
	}
	return payroll.At(h, m), nil
}

func parseWeekday(s string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if name == full || name == full[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// =============================================================================
// COLUMN MAPPING
// =============================================================================

// ParseMapping parses a YAML or JSON column mapping and validates it.
func ParseMapping(data []byte) (attendance.ColumnMapping, error) {
	var m attendance.ColumnMapping
	if err := yaml.Unmarshal(data, &m); err != nil {
		return attendance.ColumnMapping{}, fmt.Errorf("failed to parse column mapping: %w", err)
	}
	if err := m.Validate(); err != nil {
		return attendance.ColumnMapping{}, err
	}
	return m, nil
}

// LoadMapping reads a column mapping document from disk.
func LoadMapping(path string) (attendance.ColumnMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return attendance.ColumnMapping{}, fmt.Errorf("read mapping %s: %w", path, err)
	}
	return ParseMapping(data)
}
