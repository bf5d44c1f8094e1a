package stats

import (
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
)

// cell is one value in a plain-text table. Counts are right-aligned so digits
// line up; titles and labels are left-aligned.
type cell struct {
	value string
	count bool
}

func label(value string) cell {
	return cell{value: value}
}

func count(n int) cell {
	return cell{value: strconv.Itoa(n), count: true}
}

// countOr renders n as a count, or placeholder when n is not set.
func countOr(n int, set bool, placeholder string) cell {
	if !set {
		return cell{value: placeholder, count: true}
	}
	return count(n)
}

// tableLines lays rows out under headers, one line each. A header takes the
// alignment of the first row's cell in its column.
func tableLines(headers []string, rows [][]cell) []string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i := range widths {
			if i < len(row) {
				widths[i] = max(widths[i], runewidth.StringWidth(row[i].value))
			}
		}
	}

	head := make([]cell, len(headers))
	for i, h := range headers {
		head[i] = label(h)
		if len(rows) > 0 && i < len(rows[0]) {
			head[i].count = rows[0][i].count
		}
	}

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, joinCells(head, widths))
	for _, row := range rows {
		lines = append(lines, joinCells(row, widths))
	}
	return lines
}

func joinCells(row []cell, widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		var c cell
		if i < len(row) {
			c = row[i]
		}
		if c.count {
			parts[i] = runewidth.FillLeft(c.value, w)
		} else {
			parts[i] = runewidth.FillRight(c.value, w)
		}
	}
	return strings.TrimRight(strings.Join(parts, " "), " ")
}
