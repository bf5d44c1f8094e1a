// Package model defines shared data structures.
package model

import (
	"fmt"
	"strings"
	"time"
)

// CounterState is the mutable part of a mantra: its reads, goal and favorite flag.
type CounterState struct {
	Reads      int32
	Goal       int32
	IsFavorite bool
}

// Mantra is a tracked recitation item.
type Mantra struct {
	ID        string
	Title     string
	Position  int
	CreatedAt time.Time
	UpdatedAt time.Time
	CounterState
}

// ReadingEvent records how many reads were logged at a point in time.
// Readings is signed: lowering a counter logs a negative event.
type ReadingEvent struct {
	Period   time.Time
	Readings int
}

// MantraSort orders mantra listings. Favorites always come first.
type MantraSort string

const (
	// SortPosition keeps creation order.
	SortPosition MantraSort = ""
	// SortTitle orders by title, ascending and case-insensitive.
	SortTitle MantraSort = "title"
	// SortReads orders by reads, most read first.
	SortReads MantraSort = "reads"
)

// ParseMantraSort parses a sort name. "position" and the empty string select SortPosition.
func ParseMantraSort(value string) (MantraSort, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "position":
		return SortPosition, nil
	case string(SortTitle):
		return SortTitle, nil
	case string(SortReads):
		return SortReads, nil
	}
	return SortPosition, fmt.Errorf("unknown sort %q (expected title, reads or position)", value)
}

// MantraFilter narrows and orders mantra listings.
type MantraFilter struct {
	FavoritesOnly bool
	Query         string
	Sort          MantraSort
}

// ReadingFilter narrows reading event listings. Empty MantraID means all mantras.
type ReadingFilter struct {
	MantraID string
	Since    *time.Time
	Until    *time.Time
}

// StatsConfig selects the statistics to show. Empty MantraID means overall statistics.
type StatsConfig struct {
	MantraID string
	Week     int
	Month    int
	Year     int
}
