package stats

import "testing"

func TestRenderTableAlignsColumns(t *testing.T) {
	cols := []column{{header: "Bigram"}, {header: "Weight", right: true}}
	rows := [][]string{
		{"th", "2.368"},
		{"^t", "12.000"},
	}

	lines := renderTable(cols, rows)
	want := []string{
		"Bigram  Weight",
		"------  ------",
		"th       2.368",
		"^t      12.000",
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d", len(want), len(lines))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d: expected %q, got %q", i, want[i], lines[i])
		}
	}
}

func TestRenderTableShortRowsAndWideRunes(t *testing.T) {
	cols := []column{{header: "A"}, {header: "B"}}
	lines := renderTable(cols, [][]string{{"語"}, {"x", "y"}})
	if lines[2] != "語" {
		t.Fatalf("unexpected short row: %q", lines[2])
	}
	if lines[0] != "A   B" || lines[3] != "x   y" {
		t.Fatalf("unexpected alignment: %q / %q", lines[0], lines[3])
	}
	if renderTable(nil, nil) != nil {
		t.Fatalf("expected nil for no columns")
	}
}
