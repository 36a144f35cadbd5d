package factory_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-ledger/factory"
	"github.com/warp/attendance-ledger/generic"
	"github.com/warp/attendance-ledger/payroll"
	"gopkg.in/yaml.v3"
)

func TestParseRules_EmptyDocumentKeepsDefaults(t *testing.T) {
	rules, err := factory.ParseRules([]byte("{}"))
	require.NoError(t, err)

	def := payroll.DefaultRules()
	assert.Equal(t, def.EarlyBoundary, rules.EarlyBoundary)
	assert.Equal(t, def.WeekendEves, rules.WeekendEves)
	assert.True(t, def.OTRate.Equal(rules.OTRate))
	assert.Len(t, rules.PenaltyTiers, 3)
}

func TestParseRules_Overrides(t *testing.T) {
	// GIVEN: A site with a later eve start, Friday/Saturday eves and a new tier table
	doc := `
early_boundary: "10:15"
starts:
  b_eves: "16:00"
weekend_eves: [fri, Saturday]
penalty_tiers:
  - {min_minutes: 15, amount: "2"}
  - {min_minutes: 45, amount: "8"}
standard_pay: "12.5"
default_shift_length: 8h
`
	// WHEN: Parsing
	rules, err := factory.ParseRules([]byte(doc))
	require.NoError(t, err)

	// THEN: Overridden fields change, the rest keep defaults
	assert.Equal(t, payroll.At(10, 15), rules.EarlyBoundary)
	assert.Equal(t, payroll.At(12, 30), rules.LateBoundary)
	assert.Equal(t, payroll.At(16, 0), rules.StartBEves)
	assert.Equal(t, payroll.At(14, 0), rules.StartB)
	assert.Equal(t, []time.Weekday{time.Friday, time.Saturday}, rules.WeekendEves)
	assert.True(t, decimal.RequireFromString("12.5").Equal(rules.StandardPay))
	assert.Equal(t, 8*time.Hour, rules.DefaultShiftLength)

	require.Len(t, rules.PenaltyTiers, 2)
	assert.Equal(t, 45, rules.PenaltyTiers[0].MinMinutes, "tiers are sorted longest first")
	assert.True(t, decimal.NewFromInt(2).Equal(payroll.PenaltyFor(rules, 20)))
	assert.True(t, decimal.NewFromInt(8).Equal(payroll.PenaltyFor(rules, 50)))
}

func TestParseRules_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad clock", `late_boundary: "25:00"`},
		{"bad weekday", `weekend_eves: [someday]`},
		{"bad amount", `ot_rate: "fast"`},
		{"bad duration", `default_shift_length: "nine"`},
		{"boundaries crossed", `early_boundary: "13:00"`},
		{"not yaml", `[[[`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := factory.ParseRules([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestToDocument_RoundTrip(t *testing.T) {
	// GIVEN: The default rules rendered to YAML
	out, err := yaml.Marshal(factory.ToDocument(payroll.DefaultRules()))
	require.NoError(t, err)

	// WHEN: Parsed back
	rules, err := factory.ParseRules(out)
	require.NoError(t, err)

	// THEN: Pricing is unchanged
	def := payroll.DefaultRules()
	for _, m := range []int{0, 10, 20, 60} {
		assert.True(t, payroll.PenaltyFor(def, m).Equal(payroll.PenaltyFor(rules, m)), "%d minutes", m)
	}
	assert.Equal(t, def.StartBEves, rules.StartBEves)
	assert.Equal(t, def.DefaultShiftLength, rules.DefaultShiftLength)
}

func TestLoadRules_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`standard_pay: "11"`), 0o644))

	rules, err := factory.LoadRules(path)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(11).Equal(rules.StandardPay))

	_, err = factory.LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseMapping(t *testing.T) {
	m, err := factory.ParseMapping([]byte(`{"name": "Employee", "date": "Day", "check_in": "In", "check_out": "Out", "amount_paid": "Paid"}`))
	require.NoError(t, err)
	assert.Equal(t, "Employee", m.Name)
	assert.Equal(t, "Day", m.Date)
	assert.Equal(t, "", m.ManualPenalty)

	_, err = factory.ParseMapping([]byte("name: Employee\n"))
	assert.ErrorIs(t, err, generic.ErrInvalidMapping)
}
