package scoreboard

import "testing"

func TestParseScore(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"12", 12, true},
		{" 3.5 ", 3.5, true},
		{"1,250", 1250, true},
		{"", 0, false},
		{"n/a", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseScore(tc.raw)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("parseScore(%q) = %v, %v; want %v, %v", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestNormalizeCellDate(t *testing.T) {
	for raw, want := range map[string]string{
		"2024-03-01": "2024-03-01",
		"3/1/2024":   "2024-03-01",
		"2024/03/01": "2024-03-01",
	} {
		got, ok := normalizeCellDate(raw)
		if !ok || got != want {
			t.Fatalf("normalizeCellDate(%q) = %q, %v", raw, got, ok)
		}
	}
	if _, ok := normalizeCellDate("Total"); ok {
		t.Fatalf("expected non-date cell to be rejected")
	}
}

func TestGridNextRowSkipsHeader(t *testing.T) {
	g := &grid{}
	if got := g.nextRow(); got != 1 {
		t.Fatalf("empty sheet next row = %d, want 1", got)
	}
	g = &grid{rows: [][]string{{"Date", "alice"}, {"2024-03-01", "1"}}}
	if got := g.nextRow(); got != 2 {
		t.Fatalf("next row = %d, want 2", got)
	}
}

func TestParseOperation(t *testing.T) {
	if op, err := ParseOperation(""); err != nil || op != OperationAdd {
		t.Fatalf("empty operation = %q, %v", op, err)
	}
	if _, err := ParseOperation("clear"); err == nil {
		t.Fatalf("clear must not be accepted as input")
	}
}
