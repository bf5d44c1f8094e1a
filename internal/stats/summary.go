package stats

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/verte-zerg/mantra/internal/counter"
	"github.com/verte-zerg/mantra/internal/model"
)

const sparkChars = " .:-=+*#%@"

// MantraSummary pairs a mantra with its recent daily series.
type MantraSummary struct {
	Mantra model.Mantra
	Recent Series
}

// Summaries loads the rolling week of every mantra.
func Summaries(ctx context.Context, src ReadingSource, cal Calendar, mantras []model.Mantra) ([]MantraSummary, error) {
	agg := NewAggregator(cal)
	sel := WeekOf(0)
	out := make([]MantraSummary, 0, len(mantras))
	for _, m := range mantras {
		log, err := LoadEventLog(ctx, src, cal, m.ID, sel)
		if err != nil {
			return nil, fmt.Errorf("load readings for %s: %w", m.Title, err)
		}
		series, err := agg.Series(log, sel)
		if err != nil {
			return nil, err
		}
		out = append(out, MantraSummary{Mantra: m, Recent: series})
	}
	return out, nil
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints one table row per mantra.
func RenderSummary(w io.Writer, summaries []MantraSummary) error {
	if len(summaries) == 0 {
		_, err := fmt.Fprintln(w, "No mantras found.")
		return err
	}
	headers := []string{"", "Title", "Reads", "Goal", "Progress", "7 days", "Trend"}
	rows := make([][]cell, 0, len(summaries))
	for _, s := range summaries {
		fav := ""
		if s.Mantra.IsFavorite {
			fav = "*"
		}
		hasGoal := s.Mantra.Goal > 0
		percent := int(math.Round(counter.Progress(s.Mantra.CounterState) * 100))
		progress := countOr(percent, hasGoal, "-")
		if hasGoal {
			progress.value += "%"
		}
		rows = append(rows, []cell{
			label(fav),
			label(s.Mantra.Title),
			count(int(s.Mantra.Reads)),
			countOr(int(s.Mantra.Goal), hasGoal, "-"),
			progress,
			count(s.Recent.Total()),
			label(Sparkline(s.Recent.Values())),
		})
	}
	for _, line := range tableLines(headers, rows) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// TopMantras returns the n summaries with the largest recent totals.
func TopMantras(summaries []MantraSummary, n int) []MantraSummary {
	if n <= 0 || len(summaries) == 0 {
		return nil
	}
	items := make([]MantraSummary, len(summaries))
	copy(items, summaries)
	sort.SliceStable(items, func(i, j int) bool {
		ti, tj := items[i].Recent.Total(), items[j].Recent.Total()
		if ti == tj {
			return items[i].Mantra.Title < items[j].Mantra.Title
		}
		return ti > tj
	})
	if n > len(items) {
		n = len(items)
	}
	return items[:n]
}
