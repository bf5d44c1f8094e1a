package stats

import (
	"context"

	"github.com/verte-zerg/mantra/internal/model"
)

// ReadingSource lists reading events.
type ReadingSource interface {
	ListReadings(ctx context.Context, filter model.ReadingFilter) ([]model.ReadingEvent, error)
}

// Section is one titled series of a report.
type Section struct {
	Selector Selector
	Title    string
	Series   Series
}

// Report contains precomputed data for stats rendering.
type Report struct {
	Week  Section
	Month Section
	Year  Section
}

// Sections returns the report sections in display order.
func (r Report) Sections() []Section {
	return []Section{r.Week, r.Month, r.Year}
}

// BuildReport loads the event log and prepares week, month and year series.
// Selectors are validated before touching the source.
func BuildReport(ctx context.Context, src ReadingSource, cal Calendar, cfg model.StatsConfig) (Report, error) {
	selectors := []Selector{WeekOf(cfg.Week), MonthOf(cfg.Month), YearOf(cfg.Year)}
	for _, sel := range selectors {
		if err := cal.Validate(sel); err != nil {
			return Report{}, err
		}
	}

	log, err := LoadEventLog(ctx, src, cal, cfg.MantraID, selectors...)
	if err != nil {
		return Report{}, err
	}

	agg := NewAggregator(cal)
	sections := make([]Section, len(selectors))
	for i, sel := range selectors {
		series, err := agg.Series(log, sel)
		if err != nil {
			return Report{}, err
		}
		sections[i] = Section{Selector: sel, Title: cal.Title(sel), Series: series}
	}
	return Report{Week: sections[0], Month: sections[1], Year: sections[2]}, nil
}

// LoadEventLog reads the events of mantraID (all mantras when empty) covering the
// union of the selectors' windows.
func LoadEventLog(ctx context.Context, src ReadingSource, cal Calendar, mantraID string, selectors ...Selector) (EventLog, error) {
	filter := model.ReadingFilter{MantraID: mantraID}
	for i, sel := range selectors {
		start, end, err := cal.Window(sel)
		if err != nil {
			return EventLog{}, err
		}
		if i == 0 || start.Before(*filter.Since) {
			s := start
			filter.Since = &s
		}
		if i == 0 || end.After(*filter.Until) {
			e := end
			filter.Until = &e
		}
	}
	events, err := src.ListReadings(ctx, filter)
	if err != nil {
		return EventLog{}, err
	}
	return NewEventLog(events), nil
}
