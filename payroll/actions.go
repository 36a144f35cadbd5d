package payroll

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/attendance-ledger/generic"
)

// =============================================================================
// MANAGER ACTIONS
// =============================================================================
// Every action takes a shift by value and returns its replacement. The bool
// is false when the input was empty or cancelled; the shift comes back
// unchanged and nothing is reported.

const noteSeparator = " | "

// ToggleWaiver waives the attendance penalty, or restores it if already waived.
func ToggleWaiver(s Shift) (Shift, bool) {
	if s.Waived() {
		s.PenaltyWaiver = decimal.Zero
		return s.Rederive(), true
	}
	if !s.AttendancePenalty.IsPositive() {
		return s, false
	}
	s.PenaltyWaiver = s.AttendancePenalty
	return s.Rederive(), true
}

// ApplyAdjustment adds a signed manager deduction (positive) or credit
// (negative) with a mandatory reason.
func ApplyAdjustment(s Shift, amount decimal.Decimal, reason string) (Shift, bool) {
	reason = strings.TrimSpace(reason)
	if reason == "" || amount.IsZero() {
		return s, false
	}
	s.ManualAdjustment = s.ManualAdjustment.Add(amount)
	s.Notes = appendNote(s.Notes, reason)
	return s.Rederive(), true
}

// ApplyManualPenalty adds a penalty unrelated to lateness with a mandatory reason.
func ApplyManualPenalty(s Shift, amount decimal.Decimal, reason string) (Shift, bool) {
	reason = strings.TrimSpace(reason)
	if reason == "" || amount.IsZero() {
		return s, false
	}
	s.ManualPenalty = s.ManualPenalty.Add(amount)
	s.Notes = appendNote(s.Notes, reason)
	return s.Rederive(), true
}

// Apply dispatches one ledger edit to its action.
func Apply(s Shift, edit generic.Edit) (Shift, bool) {
	switch edit.Kind {
	case generic.EditWaiverToggle:
		return ToggleWaiver(s)
	case generic.EditAdjustment:
		return ApplyAdjustment(s, edit.Amount, edit.Reason)
	case generic.EditManualPenalty:
		return ApplyManualPenalty(s, edit.Amount, edit.Reason)
	}
	return s, false
}

// ApplyEdits replays edits in order over the shift list. Each edit replaces
// the whole record it targets; edits for ids no longer present are skipped.
// The input slice is not modified.
func ApplyEdits(shifts []Shift, edits []generic.Edit) []Shift {
	out := make([]Shift, len(shifts))
	copy(out, shifts)
	if len(edits) == 0 {
		return out
	}

	byID := make(map[generic.ShiftID]int, len(out))
	for i, s := range out {
		byID[s.ID] = i
	}
	for _, edit := range edits {
		i, ok := byID[edit.ShiftID]
		if !ok {
			continue
		}
		if next, applied := Apply(out[i], edit); applied {
			out[i] = next
		}
	}
	return out
}

func appendNote(notes, reason string) string {
	if notes == "" {
		return reason
	}
	return notes + noteSeparator + reason
}
