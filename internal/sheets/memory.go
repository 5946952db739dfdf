package sheets

import (
	"context"
	"strings"
	"sync"
)

// MemoryClient stores worksheets in memory for local development and tests.
type MemoryClient struct {
	mu     sync.RWMutex
	sheets map[string][][]string
	writes int
}

// NewMemoryClient constructs an empty in-memory spreadsheet.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{sheets: make(map[string][][]string)}
}

// SetSheet replaces the contents of a worksheet, creating it when missing.
func (m *MemoryClient) SetSheet(sheet string, rows [][]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sheets[sheet] = cloneRows(rows)
}

// Writes reports how many write calls reached the spreadsheet.
func (m *MemoryClient) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

// Values implements Client. Trailing empty cells and rows are trimmed like the Sheets API does.
func (m *MemoryClient) Values(_ context.Context, sheet string) ([][]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows, ok := m.sheets[sheet]
	if !ok {
		return nil, ErrSheetNotFound
	}
	return trimRows(rows), nil
}

// WriteRow implements Client.
func (m *MemoryClient) WriteRow(_ context.Context, sheet string, start Cell, values []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, ok := m.sheets[sheet]
	if !ok {
		return ErrSheetNotFound
	}
	for len(rows) <= start.Row {
		rows = append(rows, nil)
	}
	row := rows[start.Row]
	for len(row) < start.Col+len(values) {
		row = append(row, "")
	}
	copy(row[start.Col:], values)
	rows[start.Row] = row
	m.sheets[sheet] = rows
	m.writes++
	return nil
}

// Clear implements Client.
func (m *MemoryClient) Clear(ctx context.Context, sheet string, cell Cell) error {
	m.mu.RLock()
	_, ok := m.sheets[sheet]
	m.mu.RUnlock()
	if !ok {
		return ErrSheetNotFound
	}
	return m.WriteRow(ctx, sheet, cell, []string{""})
}

func trimRows(rows [][]string) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		end := len(row)
		for end > 0 && strings.TrimSpace(row[end-1]) == "" {
			end--
		}
		out = append(out, append(make([]string, 0, end), row[:end]...))
	}
	for len(out) > 0 && len(out[len(out)-1]) == 0 {
		out = out[:len(out)-1]
	}
	return out
}

func cloneRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = append([]string(nil), row...)
	}
	return out
}
