// Package shipping resolves the shipping cost charged at checkout.
package shipping

import "hardware-checkout/internal/model"

// RateTable is a flat shipping cost per region with a default for the rest.
type RateTable struct {
	defaultCost int64
	byRegion    map[string]int64
}

// NewRateTable builds a rate table. Region keys are normalized the same way
// address fields are, so "Región Metropolitana " and "región metropolitana" match.
func NewRateTable(defaultCost int64, byRegion map[string]int64) *RateTable {
	t := &RateTable{
		defaultCost: defaultCost,
		byRegion:    make(map[string]int64, len(byRegion)),
	}
	for region, cost := range byRegion {
		t.byRegion[model.NormalizeField(region)] = cost
	}
	return t
}

// CostFor returns the shipping cost for a destination region.
func (t *RateTable) CostFor(region string) int64 {
	if cost, ok := t.byRegion[model.NormalizeField(region)]; ok {
		return cost
	}
	return t.defaultCost
}
