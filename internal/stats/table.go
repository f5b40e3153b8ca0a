package stats

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/samber/lo"
)

type column struct {
	header string
	right  bool
}

// renderTable lays rows out under a header and a dashed rule. Cells are
// padded by display width.
func renderTable(cols []column, rows [][]string) []string {
	if len(cols) == 0 {
		return nil
	}
	widths := lo.Map(cols, func(c column, i int) int {
		w := runewidth.StringWidth(c.header)
		for _, row := range rows {
			if i < len(row) {
				w = max(w, runewidth.StringWidth(row[i]))
			}
		}
		return w
	})

	headers := lo.Map(cols, func(c column, _ int) string { return c.header })
	rules := lo.Map(widths, func(w int, _ int) string { return strings.Repeat("-", w) })
	lines := make([]string, 0, len(rows)+2)
	lines = append(lines, joinCells(cols, widths, headers), strings.Join(rules, "  "))
	for _, row := range rows {
		lines = append(lines, joinCells(cols, widths, row))
	}
	return lines
}

func joinCells(cols []column, widths []int, row []string) string {
	cells := make([]string, len(cols))
	for i, c := range cols {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		if c.right {
			cells[i] = runewidth.FillLeft(cell, widths[i])
		} else {
			cells[i] = runewidth.FillRight(cell, widths[i])
		}
	}
	return strings.TrimRight(strings.Join(cells, "  "), " ")
}
