package models

import (
	"cmp"
	"slices"
	"strconv"
)

// DefaultRadius is the search radius in meters used when a post does not define one.
const DefaultRadius uint32 = 250

// Coordinate represents one geotagged location query.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`  // Latitude of the geographical point.
	Longitude float64 `json:"longitude"` // Longitude of the geographical point.
	Radius    uint32  `json:"radius"`    // Search radius in meters.
}

// Compare orders coordinates lexicographically by latitude, longitude and radius.
func (c Coordinate) Compare(other Coordinate) int {
	if r := cmp.Compare(c.Latitude, other.Latitude); r != 0 {
		return r
	}
	if r := cmp.Compare(c.Longitude, other.Longitude); r != 0 {
		return r
	}

	return cmp.Compare(c.Radius, other.Radius)
}

// Less reports whether c sorts before other.
func (c Coordinate) Less(other Coordinate) bool {
	return c.Compare(other) < 0
}

// Normalized returns the "<lat>-<lon>" form used for cache keys and derived place IDs.
func (c Coordinate) Normalized() string {
	return FormatDegrees(c.Latitude) + "-" + FormatDegrees(c.Longitude)
}

// FormatDegrees renders a coordinate component with a fixed six-digit precision.
func FormatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// NewCoordinateSet deduplicates coordinates and returns them in lexicographic order.
func NewCoordinateSet(coords ...Coordinate) []Coordinate {
	seen := make(map[Coordinate]struct{}, len(coords))
	set := make([]Coordinate, 0, len(coords))

	for _, c := range coords {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		set = append(set, c)
	}

	slices.SortFunc(set, Coordinate.Compare)

	return set
}
