// Package attendance turns raw attendance-log rows into one grouped record
// per employee per calendar day.
//
// Rows arrive as open header→value maps from CSV or XLSX exports. A
// ColumnMapping is applied once at ingestion to build typed Records; the
// rest of the pipeline never looks up a header string again.
package attendance

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/attendance-ledger/generic"
)

// RawRow is one exported row: column header to cell text.
type RawRow map[string]string

// ColumnMapping names the header carrying each logical field.
type ColumnMapping struct {
	Name          string `json:"name" yaml:"name"`
	Date          string `json:"date" yaml:"date"`
	CheckIn       string `json:"check_in" yaml:"check_in"`
	CheckOut      string `json:"check_out" yaml:"check_out"`
	AmountPaid    string `json:"amount_paid" yaml:"amount_paid"`
	ManualPenalty string `json:"manual_penalty,omitempty" yaml:"manual_penalty,omitempty"`
}

// Validate checks the fields without which no shift can be built.
func (m ColumnMapping) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return &generic.MappingError{Field: "name"}
	}
	if strings.TrimSpace(m.Date) == "" {
		return &generic.MappingError{Field: "date"}
	}
	return nil
}

// Record is a RawRow after the mapping has been applied.
type Record struct {
	Row           int // 1-based position among data rows
	Name          string
	Date          string
	CheckIn       string
	CheckOut      string
	AmountPaid    string
	ManualPenalty string
}

// Apply builds the typed record for one row. Missing headers read as empty.
func (m ColumnMapping) Apply(row RawRow, index int) Record {
	get := func(header string) string {
		if header == "" {
			return ""
		}
		return row[header]
	}
	return Record{
		Row:           index,
		Name:          get(m.Name),
		Date:          get(m.Date),
		CheckIn:       get(m.CheckIn),
		CheckOut:      get(m.CheckOut),
		AmountPaid:    get(m.AmountPaid),
		ManualPenalty: get(m.ManualPenalty),
	}
}

// Day is every punch of one employee on one calendar day, merged.
type Day struct {
	Key           string // lowercased name | yyyy-mm-dd
	Employee      string // first-seen display name
	Date          generic.TimePoint
	HasCheckIn    bool
	ActualIn      time.Time
	ActualOut     time.Time
	CheckOutFound bool
	Overnight     bool
	AmountPaid    decimal.Decimal
	ManualPenalty decimal.Decimal
	Rows          []int
}

// Cleansing log entry kinds.
const (
	CleanMissingName     = "missing_name"
	CleanHeaderRow       = "header_row"
	CleanUnparseableDate = "unparseable_date"
	CleanMissingCheckIn  = "missing_check_in"
)
