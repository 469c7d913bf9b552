// Package places deduplicates reverse-geocoding results into canonical places.
package places

import (
	"github.com/UnknownOlympus/geoplaces/internal/models"
)

// Stats counts what happened to the places offered to an Aggregator.
type Stats struct {
	Added      int // Added is the number of distinct places kept.
	Duplicates int // Duplicates were dropped because their ID was already present.
	Skipped    int // Skipped places had no identity and do not count as resolved.
}

// Aggregator collects places keyed by ID. The first insertion of an ID wins; later
// places with the same ID are ignored rather than merged.
type Aggregator struct {
	index  map[string]int
	places []models.Place
	stats  Stats
}

// NewAggregator returns an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{index: make(map[string]int)}
}

// Add inserts the place and reports whether it was kept.
func (a *Aggregator) Add(place models.Place) bool {
	if place.ID == "" {
		a.stats.Skipped++
		return false
	}

	if _, ok := a.index[place.ID]; ok {
		a.stats.Duplicates++
		return false
	}

	a.index[place.ID] = len(a.places)
	a.places = append(a.places, place)
	a.stats.Added++

	return true
}

// AddAll inserts every place in order.
func (a *Aggregator) AddAll(places []models.Place) {
	for _, p := range places {
		a.Add(p)
	}
}

// Places returns the kept places in first-insertion order.
func (a *Aggregator) Places() []models.Place {
	out := make([]models.Place, len(a.places))
	copy(out, a.places)

	return out
}

// Len returns the number of distinct places.
func (a *Aggregator) Len() int {
	return len(a.places)
}

// Stats returns the insertion counters.
func (a *Aggregator) Stats() Stats {
	return a.stats
}
