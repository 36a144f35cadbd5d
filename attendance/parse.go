package attendance

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DATE PARSING
// =============================================================================

// dateTimeLayouts are tried first. They pin the ISO forms a spreadsheet or a
// biometric export usually emits when a cell carries a full timestamp.
var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// dateLayouts is the ordered list of accepted date-only formats. The first
// one that parses to a year after 2000 wins, so 03/04/2025 reads day-first.
var dateLayouts = []string{
	"2006-01-02",      // yyyy-MM-dd
	"02/01/2006",      // dd/MM/yyyy
	"01/02/2006",      // MM/dd/yyyy
	"2/1/2006",        // d/M/yyyy
	"02-01-2006",      // dd-MM-yyyy
	"02.01.2006",      // dd.MM.yyyy
	"January 2, 2006", // MMMM d, yyyy
	"Jan 2, 2006",     // MMM d, yyyy
}

var dateSeparators = regexp.MustCompile(`[-/.\s,]+`)

// DateError is the failure side of ParseDate.
type DateError struct {
	Input  string
	Reason string
}

func (e *DateError) Error() string {
	return fmt.Sprintf("unparseable date %q: %s", e.Input, e.Reason)
}

// ParseDate reads a free-text calendar date. The result is midnight UTC.
func ParseDate(text string) (time.Time, error) {
	s := cleanCell(text)
	if s == "" {
		return time.Time{}, &DateError{Input: text, Reason: "empty"}
	}

	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil && t.Year() > 2000 {
			return dateOnly(t.Year(), t.Month(), t.Day()), nil
		}
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil && t.Year() > 2000 {
			return dateOnly(t.Year(), t.Month(), t.Day()), nil
		}
	}

	if t, ok := splitDate(s); ok {
		return t, nil
	}
	return time.Time{}, &DateError{Input: text, Reason: "no accepted format matched"}
}

// splitDate is the last resort: three numeric parts, the year being the one
// above 1000. Year-first is tried before year-last.
func splitDate(s string) (time.Time, bool) {
	parts := dateSeparators.Split(strings.TrimSpace(s), -1)
	if len(parts) != 3 {
		return time.Time{}, false
	}
	n := make([]int, 3)
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, false
		}
		n[i] = v
	}

	if n[0] > 1000 {
		if t, ok := validDate(n[0], n[1], n[2]); ok {
			return t, true
		}
	}
	if n[2] > 1000 {
		if t, ok := validDate(n[2], n[1], n[0]); ok {
			return t, true
		}
		if t, ok := validDate(n[2], n[0], n[1]); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func validDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := dateOnly(year, time.Month(month), day)
	// time.Date normalizes Feb 30 into March; reject that.
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

func dateOnly(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// TIME PARSING
// =============================================================================

// Clock is a wall-clock time of day.
type Clock struct {
	Hours   int
	Minutes int
	Seconds int
}

// On returns the instant at this clock time on the given day.
func (c Clock) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hours, c.Minutes, c.Seconds, 0, time.UTC)
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hours, c.Minutes, c.Seconds)
}

var clockPattern = regexp.MustCompile(`(?i)(\d{1,2})[:.](\d{2})(?:[:.](\d{2}))?\s*(AM|PM)?`)

// ParseTime reads a free-text time of day such as "9:05", "21.30.15" or
// "08:40 pm". When a cell holds several time-like tokens (a "date time"
// cell written with dots) the last valid one is used.
func ParseTime(text string) (Clock, bool) {
	s := cleanCell(text)
	if s == "" {
		return Clock{}, false
	}
	matches := clockPattern.FindAllStringSubmatch(s, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		if c, ok := clockFromMatch(matches[i]); ok {
			return c, true
		}
	}
	return Clock{}, false
}

func clockFromMatch(m []string) (Clock, bool) {
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	sec := 0
	if m[3] != "" {
		sec, _ = strconv.Atoi(m[3])
	}
	if min > 59 || sec > 59 {
		return Clock{}, false
	}

	switch strings.ToUpper(m[4]) {
	case "PM":
		if h < 12 {
			h += 12
		}
	case "AM":
		if h == 12 {
			h = 0
		}
	}
	if h > 23 {
		return Clock{}, false
	}
	return Clock{Hours: h, Minutes: min, Seconds: sec}, true
}

// =============================================================================
// CURRENCY PARSING
// =============================================================================

var nonAmountChars = regexp.MustCompile(`[^0-9.\-]`)

// ParseCurrency reads a money cell. Thousands separators and currency
// symbols are dropped; anything unparseable is zero, never "unknown".
func ParseCurrency(text string) decimal.Decimal {
	s := strings.ReplaceAll(cleanCell(text), ",", "")
	s = nonAmountChars.ReplaceAllString(s, "")
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// cleanCell trims whitespace and surrounding quotes left by CSV exports.
func cleanCell(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}
