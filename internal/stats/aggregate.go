package stats

import (
	"sort"
	"time"

	"github.com/verte-zerg/mantra/internal/model"
)

// Bucket is the total of readings in one calendar unit starting at Start.
type Bucket struct {
	Start time.Time
	Total int
}

// Series is a dense, ordered run of buckets.
type Series []Bucket

// Total sums every bucket.
func (s Series) Total() int {
	total := 0
	for _, b := range s {
		total += b.Total
	}
	return total
}

// Max returns the largest bucket total, or 0 for an empty series.
func (s Series) Max() int {
	maxVal := 0
	for i, b := range s {
		if i == 0 || b.Total > maxVal {
			maxVal = b.Total
		}
	}
	return maxVal
}

// Values returns bucket totals as floats for plotting.
func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = float64(b.Total)
	}
	return out
}

// EventLog is an immutable, time-ordered snapshot of reading events.
type EventLog struct {
	events []model.ReadingEvent
}

// NewEventLog copies events and sorts the copy by period.
func NewEventLog(events []model.ReadingEvent) EventLog {
	sorted := make([]model.ReadingEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Period.Before(sorted[j].Period)
	})
	return EventLog{events: sorted}
}

// MergeEvents combines several logs into one, used for overall statistics.
func MergeEvents(logs ...[]model.ReadingEvent) EventLog {
	size := 0
	for _, l := range logs {
		size += len(l)
	}
	all := make([]model.ReadingEvent, 0, size)
	for _, l := range logs {
		all = append(all, l...)
	}
	return NewEventLog(all)
}

// Len returns the number of events.
func (l EventLog) Len() int {
	return len(l.events)
}

// Between returns the events in [start, end), sharing the log's storage.
func (l EventLog) Between(start, end time.Time) []model.ReadingEvent {
	lo := sort.Search(len(l.events), func(i int) bool {
		return !l.events[i].Period.Before(start)
	})
	hi := sort.Search(len(l.events), func(i int) bool {
		return !l.events[i].Period.Before(end)
	})
	if hi < lo {
		hi = lo
	}
	return l.events[lo:hi]
}

// Aggregator folds an event log into calendar series.
type Aggregator struct {
	Calendar Calendar
}

// NewAggregator returns an aggregator over cal.
func NewAggregator(cal Calendar) Aggregator {
	return Aggregator{Calendar: cal}
}

// WeekSeries returns seven daily buckets for week selector n.
func (a Aggregator) WeekSeries(log EventLog, n int) (Series, error) {
	return a.Series(log, WeekOf(n))
}

// MonthSeries returns one daily bucket per day for month selector n.
func (a Aggregator) MonthSeries(log EventLog, n int) (Series, error) {
	return a.Series(log, MonthOf(n))
}

// YearSeries returns twelve monthly buckets for year selector n.
func (a Aggregator) YearSeries(log EventLog, n int) (Series, error) {
	return a.Series(log, YearOf(n))
}

// Series computes the buckets for sel. Every bucket is present, empty ones are zero.
func (a Aggregator) Series(log EventLog, sel Selector) (Series, error) {
	starts, err := a.Calendar.BucketStarts(sel)
	if err != nil {
		return nil, err
	}
	series := make(Series, len(starts)-1)
	for i := range series {
		series[i] = Bucket{Start: starts[i]}
	}
	window := log.Between(starts[0], starts[len(starts)-1])
	idx := 0
	for _, ev := range window {
		for idx < len(series)-1 && !ev.Period.Before(starts[idx+1]) {
			idx++
		}
		series[idx].Total += ev.Readings
	}
	return series, nil
}
