package narrative_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-ledger/attendance"
	"github.com/warp/attendance-ledger/narrative"
	"github.com/warp/attendance-ledger/payroll"
)

var mapping = attendance.ColumnMapping{Name: "Name", Date: "Date", CheckIn: "In", CheckOut: "Out", AmountPaid: "Paid"}

func result(t *testing.T) *payroll.Result {
	t.Helper()
	rows := []attendance.RawRow{
		{"Name": "Ana Lima", "Date": "2025-03-03", "In": "10:40", "Out": "20:00", "Paid": "10"},
		{"Name": "Ben Okafor", "Date": "2025-03-06", "In": "15:10", "Out": "23:00", "Paid": ""},
	}
	res, err := payroll.Compute(rows, mapping, nil, payroll.Options{
		Now: func() time.Time { return time.Date(2025, time.March, 31, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return res
}

func TestNewPromptContext_AggregatesOnly(t *testing.T) {
	pc := narrative.NewPromptContext(result(t))

	assert.Equal(t, 2, pc.DaysWorked)
	assert.Equal(t, "17.52", pc.NetOwed)
	assert.Equal(t, "10.00", pc.Paid)
	assert.Equal(t, "7.52", pc.Remaining)
	require.Len(t, pc.Employees, 2)
	assert.Equal(t, "Ana Lima", pc.Employees[0].Name)
	assert.Equal(t, 1, pc.Employees[0].Rank)
	require.Len(t, pc.Months, 1)
	assert.Equal(t, "March 2025", pc.Months[0].Month)
	assert.Equal(t, "0.5000", pc.ShiftUsage["C"])

	prompt, err := narrative.UserPrompt(pc)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(prompt, "Ledger figures:\n"))
	assert.NotContains(t, prompt, "10:40", "clock times stay out of the prompt")
	assert.NotContains(t, prompt, "15:10")

	var decoded narrative.PromptContext
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(prompt, "Ledger figures:\n")), &decoded))
	assert.Equal(t, pc.NetOwed, decoded.NetOwed)
}

func TestNewAnthropicGenerator_WithoutKeyIsDisabled(t *testing.T) {
	gen := narrative.NewAnthropicGenerator("", "", nil)
	assert.IsType(t, narrative.Disabled{}, gen)

	_, err := gen.Generate(context.Background(), narrative.PromptContext{})
	assert.ErrorIs(t, err, narrative.ErrNotConfigured)
}
