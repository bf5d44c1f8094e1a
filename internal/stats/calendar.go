// Package stats aggregates reading events into calendar-aligned series and renders them.
package stats

import (
	"errors"
	"fmt"
	"time"
)

// EpochYear is the first year that yearly selectors accept.
const EpochYear = 2022

const (
	daysInWeek   = 7
	rollingDays  = 30
	monthsInYear = 12
)

// ErrInvalidSelector is returned for selectors outside their domain.
var ErrInvalidSelector = errors.New("invalid period selector")

// Granularity is the calendar unit a series spans.
type Granularity int

const (
	// Week spans seven days.
	Week Granularity = iota
	// Month spans the days of a month.
	Month
	// Year spans twelve months.
	Year
)

// String returns the display name for a granularity.
func (g Granularity) String() string {
	switch g {
	case Week:
		return "Week"
	case Month:
		return "Month"
	case Year:
		return "Year"
	default:
		return "Unknown"
	}
}

// Selector picks a period. N = 0 is the rolling window ending today; other values
// are granularity specific: ISO week number, month number, or calendar year.
type Selector struct {
	Granularity Granularity
	N           int
}

// WeekOf selects week n.
func WeekOf(n int) Selector { return Selector{Granularity: Week, N: n} }

// MonthOf selects month n.
func MonthOf(n int) Selector { return Selector{Granularity: Month, N: n} }

// YearOf selects year n.
func YearOf(n int) Selector { return Selector{Granularity: Year, N: n} }

// Calendar computes period windows relative to a clock in a location.
type Calendar struct {
	Now      func() time.Time
	Location *time.Location
}

// NewCalendar returns a calendar on the wall clock in loc (time.Local when nil).
func NewCalendar(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.Local
	}
	return Calendar{Now: time.Now, Location: loc}
}

func (c Calendar) loc() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

func (c Calendar) now() time.Time {
	if c.Now == nil {
		return time.Now().In(c.loc())
	}
	return c.Now().In(c.loc())
}

func (c Calendar) today() time.Time {
	now := c.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.loc())
}

// CurrentWeek returns the ISO year and week of today.
func (c Calendar) CurrentWeek() (year, week int) {
	return c.now().ISOWeek()
}

// CurrentMonth returns today's month number.
func (c Calendar) CurrentMonth() int {
	return int(c.now().Month())
}

// CurrentYear returns today's year.
func (c Calendar) CurrentYear() int {
	return c.now().Year()
}

// Validate reports whether sel is inside its domain.
func (c Calendar) Validate(sel Selector) error {
	if sel.N == 0 {
		switch sel.Granularity {
		case Week, Month, Year:
			return nil
		}
	}
	switch sel.Granularity {
	case Week:
		_, current := c.CurrentWeek()
		if sel.N >= 1 && sel.N <= current {
			return nil
		}
		return fmt.Errorf("%w: week %d (valid 0..%d)", ErrInvalidSelector, sel.N, current)
	case Month:
		if sel.N >= 1 && sel.N <= monthsInYear {
			return nil
		}
		return fmt.Errorf("%w: month %d (valid 0..%d)", ErrInvalidSelector, sel.N, monthsInYear)
	case Year:
		current := c.CurrentYear()
		if sel.N >= EpochYear && sel.N <= current {
			return nil
		}
		return fmt.Errorf("%w: year %d (valid 0 or %d..%d)", ErrInvalidSelector, sel.N, EpochYear, current)
	default:
		return fmt.Errorf("%w: unknown granularity %d", ErrInvalidSelector, sel.Granularity)
	}
}

// BucketStarts returns the start of every bucket for sel followed by the end of
// the last bucket, so bucket i spans [starts[i], starts[i+1]).
func (c Calendar) BucketStarts(sel Selector) ([]time.Time, error) {
	if err := c.Validate(sel); err != nil {
		return nil, err
	}
	loc := c.loc()
	switch sel.Granularity {
	case Week:
		first := c.weekStart(sel.N)
		return dayStarts(first, daysInWeek, loc), nil
	case Month:
		first, days := c.monthStart(sel.N)
		return dayStarts(first, days, loc), nil
	default:
		first := c.yearStart(sel.N)
		return monthStarts(first, monthsInYear, loc), nil
	}
}

// Window returns the half-open interval [start, end) covered by sel.
func (c Calendar) Window(sel Selector) (start, end time.Time, err error) {
	starts, err := c.BucketStarts(sel)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return starts[0], starts[len(starts)-1], nil
}

func (c Calendar) weekStart(n int) time.Time {
	today := c.today()
	if n == 0 {
		return today.AddDate(0, 0, -(daysInWeek - 1))
	}
	year, _ := c.CurrentWeek()
	return isoWeekMonday(year, n, c.loc())
}

func (c Calendar) monthStart(n int) (time.Time, int) {
	today := c.today()
	if n == 0 {
		return today.AddDate(0, 0, -(rollingDays - 1)), rollingDays
	}
	year := today.Year()
	if n > int(today.Month()) {
		year--
	}
	first := time.Date(year, time.Month(n), 1, 0, 0, 0, 0, c.loc())
	return first, daysIn(year, time.Month(n), c.loc())
}

func (c Calendar) yearStart(n int) time.Time {
	today := c.today()
	if n == 0 {
		return time.Date(today.Year()-1, today.Month()+1, 1, 0, 0, 0, 0, c.loc())
	}
	return time.Date(n, time.January, 1, 0, 0, 0, 0, c.loc())
}

// isoWeekMonday returns the Monday starting ISO week `week` of ISO year `year`.
func isoWeekMonday(year, week int, loc *time.Location) time.Time {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, loc)
	offset := (int(jan4.Weekday()) + 6) % 7
	monday := jan4.AddDate(0, 0, -offset)
	return monday.AddDate(0, 0, (week-1)*daysInWeek)
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

func dayStarts(first time.Time, days int, loc *time.Location) []time.Time {
	out := make([]time.Time, days+1)
	for i := range out {
		out[i] = time.Date(first.Year(), first.Month(), first.Day()+i, 0, 0, 0, 0, loc)
	}
	return out
}

func monthStarts(first time.Time, months int, loc *time.Location) []time.Time {
	out := make([]time.Time, months+1)
	for i := range out {
		out[i] = time.Date(first.Year(), first.Month()+time.Month(i), 1, 0, 0, 0, 0, loc)
	}
	return out
}

// Selectors returns the valid selectors for g in browsing order: the rolling
// window first, then periods from the most recent backwards.
func (c Calendar) Selectors(g Granularity) []Selector {
	out := []Selector{{Granularity: g}}
	switch g {
	case Week:
		_, current := c.CurrentWeek()
		for n := current; n >= 1; n-- {
			out = append(out, WeekOf(n))
		}
	case Month:
		current := c.CurrentMonth()
		for i := 0; i < monthsInYear; i++ {
			n := current - i
			if n < 1 {
				n += monthsInYear
			}
			out = append(out, MonthOf(n))
		}
	case Year:
		for n := c.CurrentYear(); n >= EpochYear; n-- {
			out = append(out, YearOf(n))
		}
	}
	return out
}

// Title returns a header label for sel.
func (c Calendar) Title(sel Selector) string {
	if err := c.Validate(sel); err != nil {
		return "Invalid period"
	}
	switch sel.Granularity {
	case Week:
		if sel.N == 0 {
			return "Last 7 days"
		}
		year, _ := c.CurrentWeek()
		return fmt.Sprintf("Week %d, %d", sel.N, year)
	case Month:
		if sel.N == 0 {
			return "Last 30 days"
		}
		first, _ := c.monthStart(sel.N)
		return first.Format("January 2006")
	default:
		if sel.N == 0 {
			return "Last 12 months"
		}
		return fmt.Sprintf("%d", sel.N)
	}
}
