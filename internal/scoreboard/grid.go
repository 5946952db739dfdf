package scoreboard

import (
	"strconv"
	"strings"
	"time"
)

// Layouts a date cell may be rendered in once Sheets has parsed it as a date.
var cellDateLayouts = []string{DateLayout, "1/2/2006", "2006/01/02", "2.1.2006"}

// grid is a snapshot of worksheet values with header-aware lookups.
type grid struct {
	rows [][]string
}

func (g *grid) header() []string {
	if len(g.rows) == 0 {
		return nil
	}
	return g.rows[0]
}

// users returns the non-blank header names after column A.
func (g *grid) users() []string {
	header := g.header()
	out := make([]string, 0, len(header))
	for i := 1; i < len(header); i++ {
		if name := strings.TrimSpace(header[i]); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// userColumn finds the user's column, matching names trimmed and case-insensitively. It returns -1 when absent.
func (g *grid) userColumn(name string) int {
	header := g.header()
	for i := 1; i < len(header); i++ {
		if strings.EqualFold(strings.TrimSpace(header[i]), name) {
			return i
		}
	}
	return -1
}

// dateRow returns the first row whose date cell matches date, or -1.
func (g *grid) dateRow(date string) int {
	for i := 1; i < len(g.rows); i++ {
		if d, ok := rowDate(g.rows[i]); ok && d == date {
			return i
		}
	}
	return -1
}

// nextRow is the index directly below the last non-empty row, never the header row.
func (g *grid) nextRow() int {
	if len(g.rows) == 0 {
		return 1
	}
	return len(g.rows)
}

func (g *grid) cell(row, col int) string {
	if row < 0 || row >= len(g.rows) || col < 0 || col >= len(g.rows[row]) {
		return ""
	}
	return strings.TrimSpace(g.rows[row][col])
}

func (g *grid) number(row, col int) float64 {
	v, _ := parseScore(g.cell(row, col))
	return v
}

func (g *grid) set(row, col int, value string) {
	for len(g.rows) <= row {
		g.rows = append(g.rows, nil)
	}
	for len(g.rows[row]) <= col {
		g.rows[row] = append(g.rows[row], "")
	}
	g.rows[row][col] = value
}

// total sums every dated, numeric score cell of a column.
func (g *grid) total(col int) float64 {
	var sum float64
	for _, day := range g.scores(col) {
		sum += day.Score
	}
	return sum
}

// scores lists the dated, numeric cells of a column in sheet order.
func (g *grid) scores(col int) []DayScore {
	var out []DayScore
	for i := 1; i < len(g.rows); i++ {
		date, ok := rowDate(g.rows[i])
		if !ok {
			continue
		}
		v, ok := parseScore(g.cell(i, col))
		if !ok {
			continue
		}
		out = append(out, DayScore{Date: date, Score: v})
	}
	return out
}

func rowDate(row []string) (string, bool) {
	if len(row) == 0 {
		return "", false
	}
	return normalizeCellDate(row[0])
}

func normalizeCellDate(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	for _, layout := range cellDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(DateLayout), true
		}
	}
	return "", false
}

// parseScore reads a cell as a number. Blank and non-numeric cells report false.
func parseScore(raw string) (float64, bool) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
