// Package ingest reads attendance exports (CSV or XLSX) into raw rows.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/warp/attendance-ledger/attendance"
	"github.com/xuri/excelize/v2"
)

var ErrUnsupportedFormat = errors.New("unsupported file type")

const utf8BOM = "\ufeff"

// Table is a parsed export: its header row and every data row keyed by header.
type Table struct {
	Headers []string
	Rows    []attendance.RawRow
}

// Read picks a reader from the file extension.
func Read(filename string, r io.Reader) (*Table, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return ReadCSV(r)
	case ".xlsx", ".xlsm":
		return ReadXLSX(r)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
}

// ReadCSV reads a CSV export whose first line is the header.
func ReadCSV(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte(utf8BOM))
	if len(bytes.TrimSpace(data)) == 0 {
		return &Table{}, nil
	}

	maps, err := gocsv.CSVToMaps(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	t := &Table{Headers: csvHeader(data), Rows: make([]attendance.RawRow, 0, len(maps))}
	for _, m := range maps {
		row := make(attendance.RawRow, len(m))
		for k, v := range m {
			row[strings.TrimSpace(k)] = v
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// csvHeader keeps the column order, which the maps from CSVToMaps lose.
func csvHeader(data []byte) []string {
	record, err := csv.NewReader(bytes.NewReader(data)).Read()
	if err != nil {
		return nil
	}
	headers := make([]string, len(record))
	for i, h := range record {
		headers[i] = strings.TrimSpace(h)
	}
	return headers
}

// ReadXLSX reads the first sheet of a workbook. Short rows are padded with
// empty cells; rows with no content at all are dropped. Cells formatted as
// dates or times are written in ISO form, not in their display format.
func ReadXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return &Table{}, nil
	}
	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	dates := newDateCells(f, sheet)

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, utf8BOM))
	}

	t := &Table{Headers: headers, Rows: make([]attendance.RawRow, 0, len(rows)-1)}
	for k, cells := range rows[1:] {
		if blank(cells) {
			continue
		}
		var rawCells []string
		if k+1 < len(raw) {
			rawCells = raw[k+1]
		}
		row := make(attendance.RawRow, len(headers))
		for i, h := range headers {
			if h == "" {
				continue
			}
			row[h] = ""
			if i >= len(cells) {
				continue
			}
			row[h] = cells[i]
			if i < len(rawCells) {
				if v, ok := dates.value(i+1, k+2, rawCells[i]); ok {
					row[h] = v
				}
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// dateCells rewrites date-formatted cells from their serial number.
type dateCells struct {
	f        *excelize.File
	sheet    string
	date1904 bool
	styles   map[int]bool
}

func newDateCells(f *excelize.File, sheet string) *dateCells {
	d := &dateCells{f: f, sheet: sheet, styles: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		d.date1904 = *props.Date1904
	}
	return d
}

// value returns the ISO form of the cell at (col, row) when it holds a date
// or time: "2006-01-02", "15:04:05", or both.
func (d *dateCells) value(col, row int, raw string) (string, bool) {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "", false
	}
	if typ, err := d.f.GetCellType(d.sheet, cell); err == nil && typ == excelize.CellTypeDate {
		return raw, true
	}
	serial, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || serial < 0 || !d.dateStyled(cell) {
		return "", false
	}
	if serial < 1 {
		secs := int(math.Round(serial * 86400))
		return fmt.Sprintf("%02d:%02d:%02d", secs/3600%24, secs/60%60, secs%60), true
	}
	ts, err := excelize.ExcelDateToTime(serial, d.date1904)
	if err != nil {
		return "", false
	}
	if serial == math.Trunc(serial) {
		return ts.Format("2006-01-02"), true
	}
	return ts.Format("2006-01-02 15:04:05"), true
}

func (d *dateCells) dateStyled(cell string) bool {
	idx, err := d.f.GetCellStyle(d.sheet, cell)
	if err != nil {
		return false
	}
	if isDate, ok := d.styles[idx]; ok {
		return isDate
	}
	isDate := false
	if style, err := d.f.GetStyle(idx); err == nil {
		isDate = isDateFormat(style)
	}
	d.styles[idx] = isDate
	return isDate
}

var formatLiterals = regexp.MustCompile(`"[^"]*"|\[[^\]]*\]|\\.`)

// isDateFormat reports whether a number format renders dates or times:
// the built-in date ids, or a custom code with date/time tokens outside
// quoted literals and bracketed sections.
func isDateFormat(style *excelize.Style) bool {
	switch n := style.NumFmt; {
	case n >= 14 && n <= 22, n >= 27 && n <= 36, n >= 45 && n <= 47, n >= 50 && n <= 58:
		return true
	}
	if style.CustomNumFmt == nil {
		return false
	}
	code := strings.ToLower(formatLiterals.ReplaceAllString(*style.CustomNumFmt, ""))
	return strings.ContainsAny(code, "ydhs")
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// MAPPING SUGGESTION
// =============================================================================

var headerHints = []struct {
	field string
	hints []string
}{
	{"name", []string{"employee name", "employee", "name", "staff"}},
	{"date", []string{"date", "day", "work date"}},
	{"check_in", []string{"check in", "check-in", "checkin", "clock in", "time in", "in"}},
	{"check_out", []string{"check out", "check-out", "checkout", "clock out", "time out", "out"}},
	{"amount_paid", []string{"amount paid", "paid", "payment", "advance"}},
	{"manual_penalty", []string{"manual penalty", "penalty", "deduction"}},
}

// SuggestMapping guesses a column mapping from header names. Exact matches
// win over substring matches; each header is used at most once.
func SuggestMapping(headers []string) attendance.ColumnMapping {
	used := make(map[string]bool)
	pick := func(hints []string) string {
		for _, exact := range []bool{true, false} {
			for _, hint := range hints {
				for _, h := range headers {
					if used[h] || h == "" {
						continue
					}
					lh := strings.ToLower(strings.TrimSpace(h))
					if (exact && lh == hint) || (!exact && len(hint) > 3 && strings.Contains(lh, hint)) {
						used[h] = true
						return h
					}
				}
			}
		}
		return ""
	}

	var m attendance.ColumnMapping
	for _, hh := range headerHints {
		col := pick(hh.hints)
		switch hh.field {
		case "name":
			m.Name = col
		case "date":
			m.Date = col
		case "check_in":
			m.CheckIn = col
		case "check_out":
			m.CheckOut = col
		case "amount_paid":
			m.AmountPaid = col
		case "manual_penalty":
			m.ManualPenalty = col
		}
	}
	return m
}
