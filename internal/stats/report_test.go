package stats

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/mantra/internal/model"
)

type fakeSource struct {
	events  []model.ReadingEvent
	err     error
	calls   int
	filters []model.ReadingFilter
}

func (f *fakeSource) ListReadings(_ context.Context, filter model.ReadingFilter) ([]model.ReadingEvent, error) {
	f.calls++
	f.filters = append(f.filters, filter)
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

func TestBuildReport(t *testing.T) {
	cal := fixedCalendar(fixedNow)
	src := &fakeSource{events: []model.ReadingEvent{
		event(day(2026, time.October, 19).Add(8*time.Hour), 108),
		event(day(2026, time.October, 2).Add(8*time.Hour), 27),
		event(day(2026, time.January, 5).Add(8*time.Hour), 9),
	}}

	report, err := BuildReport(context.Background(), src, cal, model.StatsConfig{MantraID: "m1"})
	require.NoError(t, err)
	require.Equal(t, 1, src.calls)

	filter := src.filters[0]
	assert.Equal(t, "m1", filter.MantraID)
	require.NotNil(t, filter.Since)
	require.NotNil(t, filter.Until)
	assert.True(t, day(2025, time.November, 1).Equal(*filter.Since))
	assert.True(t, day(2026, time.November, 1).Equal(*filter.Until))

	assert.Equal(t, "Last 7 days", report.Week.Title)
	assert.Equal(t, 108, report.Week.Series.Total())
	assert.Len(t, report.Month.Series, 30)
	assert.Equal(t, 135, report.Month.Series.Total())
	assert.Equal(t, 144, report.Year.Series.Total())
	assert.Len(t, report.Sections(), 3)
}

func TestBuildReportSelectors(t *testing.T) {
	cal := fixedCalendar(fixedNow)
	src := &fakeSource{}
	report, err := BuildReport(context.Background(), src, cal, model.StatsConfig{Week: 1, Month: 12, Year: 2022})
	require.NoError(t, err)
	assert.Equal(t, "Week 1, 2026", report.Week.Title)
	assert.Equal(t, "December 2025", report.Month.Title)
	assert.Equal(t, "2022", report.Year.Title)
	assert.True(t, day(2022, time.January, 1).Equal(*src.filters[0].Since))
	assert.True(t, day(2026, time.January, 5).Equal(*src.filters[0].Until))
}

func TestBuildReportInvalidSelector(t *testing.T) {
	src := &fakeSource{}
	_, err := BuildReport(context.Background(), src, fixedCalendar(fixedNow), model.StatsConfig{Month: 13})
	assert.ErrorIs(t, err, ErrInvalidSelector)
	assert.Zero(t, src.calls)
}

func TestBuildReportSourceError(t *testing.T) {
	boom := errors.New("boom")
	_, err := BuildReport(context.Background(), &fakeSource{err: boom}, fixedCalendar(fixedNow), model.StatsConfig{})
	assert.ErrorIs(t, err, boom)
}

func TestRenderReport(t *testing.T) {
	cal := fixedCalendar(fixedNow)
	src := &fakeSource{events: []model.ReadingEvent{
		event(day(2026, time.October, 15).Add(time.Hour), 5),
		event(day(2026, time.October, 13).Add(time.Hour), 10),
	}}
	report, err := BuildReport(context.Background(), src, cal, model.StatsConfig{})
	require.NoError(t, err)

	var buf bytes.Buffer
	err = RenderReport(&buf, "Overall", report, RenderOptions{Width: 60, Height: 5, Table: true})
	require.NoError(t, err)
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "Overall\n"))
	assert.Contains(t, out, "Week: Last 7 days")
	assert.Contains(t, out, "Week total: 15")
	assert.Contains(t, out, "Month: Last 30 days")
	assert.Contains(t, out, "Year: Last 12 months")
	assert.Contains(t, out, "Tue 13 Oct")
	assert.Contains(t, out, "Nov 2025 .. Oct 2026")
}

func TestBucketLabel(t *testing.T) {
	b := Bucket{Start: day(2026, time.March, 2)}
	assert.Equal(t, "Mon 02 Mar", BucketLabel(Week, b))
	assert.Equal(t, "Mon 02 Mar", BucketLabel(Month, b))
	assert.Equal(t, "Mar 2026", BucketLabel(Year, b))
}

func TestPlotWidthFor(t *testing.T) {
	assert.Equal(t, minPlotWidth, PlotWidthFor(0))
	assert.Equal(t, minPlotWidth, PlotWidthFor(25))
	assert.Equal(t, 68, PlotWidthFor(80))
}

func TestSparkline(t *testing.T) {
	assert.Equal(t, "", Sparkline(nil))
	assert.Equal(t, "+++", Sparkline([]float64{4, 4, 4}))
	assert.Equal(t, " @", Sparkline([]float64{0, 10}))
}

func TestRenderSummary(t *testing.T) {
	summaries := []MantraSummary{
		{
			Mantra: model.Mantra{Title: "Om", CounterState: model.CounterState{Reads: 54, Goal: 108, IsFavorite: true}},
			Recent: Series{{Total: 1}, {Total: 3}},
		},
		{
			Mantra: model.Mantra{Title: "Gate", CounterState: model.CounterState{Reads: 7}},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, RenderSummary(&buf, summaries))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "50%")
	assert.True(t, strings.HasPrefix(lines[1], "* Om"))
	assert.Contains(t, lines[2], "Gate")
	assert.Contains(t, lines[2], "-")

	buf.Reset()
	require.NoError(t, RenderSummary(&buf, nil))
	assert.Equal(t, "No mantras found.\n", buf.String())
}

func TestTopMantras(t *testing.T) {
	summaries := []MantraSummary{
		{Mantra: model.Mantra{Title: "b"}, Recent: Series{{Total: 3}}},
		{Mantra: model.Mantra{Title: "a"}, Recent: Series{{Total: 3}}},
		{Mantra: model.Mantra{Title: "c"}, Recent: Series{{Total: 9}}},
	}
	top := TopMantras(summaries, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "c", top[0].Mantra.Title)
	assert.Equal(t, "a", top[1].Mantra.Title)
	assert.Equal(t, "b", summaries[0].Mantra.Title)
	assert.Nil(t, TopMantras(summaries, 0))
}

func TestSummaries(t *testing.T) {
	cal := fixedCalendar(fixedNow)
	src := &fakeSource{events: []model.ReadingEvent{
		event(day(2026, time.October, 18).Add(time.Hour), 4),
		event(day(2026, time.October, 19).Add(time.Hour), 6),
	}}
	mantras := []model.Mantra{{ID: "a", Title: "A"}, {ID: "b", Title: "B"}}

	got, err := Summaries(context.Background(), src, cal, mantras)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", src.filters[0].MantraID)
	assert.Equal(t, "b", src.filters[1].MantraID)
	assert.Len(t, got[0].Recent, 7)
	assert.Equal(t, 10, got[1].Recent.Total())

	_, err = Summaries(context.Background(), &fakeSource{err: errors.New("boom")}, cal, mantras)
	assert.Error(t, err)
}
