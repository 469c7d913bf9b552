// Package hierarchy groups resolved places into nested presentation tiers.
package hierarchy

import (
	"cmp"
	"slices"
	"strings"

	"github.com/UnknownOlympus/geoplaces/internal/models"
)

const (
	labelSeparator = ", "
	percent        = 100
)

// Tier defines one presentation level. Selectors go from the field that decides
// membership to the most general one appended to the label.
type Tier struct {
	Name      string
	Selectors []models.AddressField
}

// Group is one labelled bucket of a tier.
type Group struct {
	Label      string  `json:"label"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// TierResult is the grouping output of a single tier.
type TierResult struct {
	Name    string  `json:"name"`
	Total   int     `json:"total"`   // Total places that contributed a label.
	Unknown int     `json:"unknown"` // Unknown places lacked the tier's first selector.
	Groups  []Group `json:"groups"`
}

// DefaultTiers returns the Country, Region, District and City tiers.
func DefaultTiers() []Tier {
	return []Tier{
		{Name: "Country", Selectors: []models.AddressField{models.FieldCountry}},
		{Name: "Region", Selectors: []models.AddressField{models.FieldState, models.FieldCountry}},
		{Name: "District", Selectors: []models.AddressField{
			models.FieldCounty, models.FieldState, models.FieldCountry,
		}},
		{Name: "City", Selectors: []models.AddressField{
			models.FieldCity, models.FieldCounty, models.FieldState, models.FieldCountry,
		}},
	}
}

// GroupPlaces aggregates places for every tier. Tiers without a single labelled place are
// omitted. The output is deterministic for a given input.
func GroupPlaces(places []models.Place, tiers []Tier) []TierResult {
	results := make([]TierResult, 0, len(tiers))

	for _, tier := range tiers {
		res, ok := groupTier(places, tier)
		if !ok {
			continue
		}
		results = append(results, res)
	}

	return results
}

func groupTier(places []models.Place, tier Tier) (TierResult, bool) {
	counts := make(map[string]int)
	unknown := 0

	for i := range places {
		label, ok := Label(&places[i], tier.Selectors)
		if !ok {
			unknown++
			continue
		}
		counts[label]++
	}

	if len(counts) == 0 {
		return TierResult{}, false
	}

	total := len(places) - unknown
	groups := make([]Group, 0, len(counts))
	for label, count := range counts {
		groups = append(groups, Group{
			Label:      label,
			Count:      count,
			Percentage: float64(count) / float64(total) * percent,
		})
	}

	slices.SortFunc(groups, func(a, b Group) int {
		if r := cmp.Compare(b.Count, a.Count); r != 0 {
			return r
		}
		return cmp.Compare(a.Label, b.Label)
	})

	return TierResult{Name: tier.Name, Total: total, Unknown: unknown, Groups: groups}, true
}

// Label joins the non-empty selector values of the place. It returns false when the
// first selector is empty, meaning the place is unknown for the tier.
func Label(place *models.Place, selectors []models.AddressField) (string, bool) {
	if len(selectors) == 0 || place.Field(selectors[0]) == "" {
		return "", false
	}

	parts := make([]string, 0, len(selectors))
	for _, sel := range selectors {
		if v := place.Field(sel); v != "" {
			parts = append(parts, v)
		}
	}

	return strings.Join(parts, labelSeparator), true
}
