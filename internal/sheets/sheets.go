// Package sheets reads and writes scoreboard worksheets, either through the Google Sheets API
// or an in-memory spreadsheet used for local development.
package sheets

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

// ErrSheetNotFound is returned when the worksheet does not exist in the spreadsheet.
var ErrSheetNotFound = errors.New("sheet not found")

// Client is the set of value operations the scoreboard needs.
type Client interface {
	// Values returns every non-empty row of the worksheet, cells rendered as strings.
	Values(ctx context.Context, sheet string) ([][]string, error)
	// WriteRow writes values into consecutive cells starting at start.
	WriteRow(ctx context.Context, sheet string, start Cell, values []string) error
	// Clear empties a single cell.
	Clear(ctx context.Context, sheet string, cell Cell) error
}

// Cell addresses a cell by zero-based row and column.
type Cell struct {
	Row int
	Col int
}

// A1 renders the cell in A1 notation, e.g. {Row: 2, Col: 27} -> "AB3".
func (c Cell) A1() string {
	return ColumnName(c.Col) + strconv.Itoa(c.Row+1)
}

// ColumnName converts a zero-based column index into its bijective base-26 letters.
// 0 -> "A", 25 -> "Z", 26 -> "AA", 701 -> "ZZ", 702 -> "AAA".
func ColumnName(col int) string {
	if col < 0 {
		return ""
	}
	var buf [8]byte
	i := len(buf)
	for n := col + 1; n > 0; n = (n - 1) / 26 {
		i--
		buf[i] = byte('A' + (n-1)%26)
	}
	return string(buf[i:])
}

// ColumnIndex is the inverse of ColumnName. It returns -1 for invalid input.
func ColumnIndex(name string) int {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return -1
	}
	n := 0
	for _, r := range name {
		if r < 'A' || r > 'Z' {
			return -1
		}
		n = n*26 + int(r-'A'+1)
	}
	return n - 1
}

// QuoteSheet quotes a worksheet name for use in an A1 range.
func QuoteSheet(sheet string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}

// Range joins a worksheet name and an A1 reference: 'My Sheet'!B3.
func Range(sheet, ref string) string {
	if ref == "" {
		return QuoteSheet(sheet)
	}
	return QuoteSheet(sheet) + "!" + ref
}

// RowRange renders the A1 range covering len(values) cells starting at start.
func RowRange(start Cell, width int) string {
	if width <= 1 {
		return start.A1()
	}
	end := Cell{Row: start.Row, Col: start.Col + width - 1}
	return start.A1() + ":" + end.A1()
}
