package stats

import (
	"fmt"
	"io"
	"os"

	"github.com/guptarohit/asciigraph"
	"golang.org/x/term"
)

const (
	defaultPlotHeight   = 8
	minPlotWidth        = 20
	plotAxisWidth       = 12
	terminalWidthBackup = 80
)

// RenderOptions controls text rendering of a report.
type RenderOptions struct {
	Width  int
	Height int
	Table  bool
	Color  bool
}

// RenderReport prints every section of the report.
func RenderReport(w io.Writer, title string, report Report, opts RenderOptions) error {
	if title != "" {
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, ""); err != nil {
			return err
		}
	}
	for _, section := range report.Sections() {
		if err := RenderSection(w, section, opts); err != nil {
			return err
		}
	}
	return nil
}

// RenderSection prints a header with the section total, a chart and optionally
// a table of bucket values.
func RenderSection(w io.Writer, section Section, opts RenderOptions) error {
	header := fmt.Sprintf("%s: %s", section.Selector.Granularity, section.Title)
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s total: %d\n", section.Selector.Granularity, section.Series.Total()); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, Chart(section, opts)); err != nil {
		return err
	}
	if opts.Table {
		for _, line := range BucketTable(section) {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	return nil
}

// Chart renders the section series as an ASCII line chart.
func Chart(section Section, opts RenderOptions) string {
	if len(section.Series) == 0 {
		return "No data available"
	}
	height := opts.Height
	if height <= 0 {
		height = defaultPlotHeight
	}
	width := opts.Width
	if width <= 0 {
		width = PlotWidthFor(terminalWidth())
	} else {
		width = PlotWidthFor(width)
	}
	graphOpts := []asciigraph.Option{
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(0),
		asciigraph.LowerBound(0),
		asciigraph.Caption(captionFor(section)),
	}
	if opts.Color && os.Getenv("NO_COLOR") == "" {
		graphOpts = append(graphOpts, asciigraph.SeriesColors(asciigraph.Red))
	}
	return asciigraph.Plot(section.Series.Values(), graphOpts...)
}

// BucketTable formats one row per bucket: label and total.
func BucketTable(section Section) []string {
	headers := []string{bucketHeader(section.Selector.Granularity), "Reads"}
	rows := make([][]cell, 0, len(section.Series))
	for _, b := range section.Series {
		rows = append(rows, []cell{label(BucketLabel(section.Selector.Granularity, b)), count(b.Total)})
	}
	return tableLines(headers, rows)
}

// BucketLabel returns the display label for a bucket of granularity g.
func BucketLabel(g Granularity, b Bucket) string {
	if g == Year {
		return b.Start.Format("Jan 2006")
	}
	return b.Start.Format("Mon 02 Jan")
}

func bucketHeader(g Granularity) string {
	if g == Year {
		return "Month"
	}
	return "Day"
}

func captionFor(section Section) string {
	if len(section.Series) == 0 {
		return section.Title
	}
	first := BucketLabel(section.Selector.Granularity, section.Series[0])
	last := BucketLabel(section.Selector.Granularity, section.Series[len(section.Series)-1])
	return fmt.Sprintf("%s .. %s", first, last)
}

// PlotWidthFor computes a plot width that fits within the total available width.
func PlotWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	plotWidth := totalWidth - plotAxisWidth
	if plotWidth < minPlotWidth {
		plotWidth = minPlotWidth
	}
	return plotWidth
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}
