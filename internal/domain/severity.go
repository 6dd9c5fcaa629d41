package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Tier is a severity label.
type Tier string

const (
	TierLow      Tier = "Low"
	TierModerate Tier = "Moderate"
	TierHigh     Tier = "High"
	TierCritical Tier = "Critical"
)

// TierBoundary assigns Tier to scores >= Min.
type TierBoundary struct {
	Min  float64
	Tier Tier
}

// TierTable is an ascending list of boundaries. The first entry catches every
// score below the second entry's Min, including NaN.
type TierTable []TierBoundary

// ThreeTier returns the Low / Moderate / High table: <4, <7, >=7.
func ThreeTier() TierTable {
	return TierTable{
		{Min: math.Inf(-1), Tier: TierLow},
		{Min: 4, Tier: TierModerate},
		{Min: 7, Tier: TierHigh},
	}
}

// FourTier returns ThreeTier with High split at 9 into High / Critical.
func FourTier() TierTable {
	return append(ThreeTier(), TierBoundary{Min: 9, Tier: TierCritical})
}

// ParseTierTable selects a table by tier count ("3" or "4").
func ParseTierTable(name string) (TierTable, error) {
	switch strings.TrimSpace(name) {
	case "", "3":
		return ThreeTier(), nil
	case "4":
		return FourTier(), nil
	default:
		return nil, fmt.Errorf("unknown severity tier scheme %q", name)
	}
}

// Classify returns the tier of score. Every score maps to exactly one tier.
func (t TierTable) Classify(score float64) Tier {
	if len(t) == 0 {
		return ""
	}
	tier := t[0].Tier
	for _, b := range t[1:] {
		if score >= b.Min {
			tier = b.Tier
		}
	}
	return tier
}

// Tiers lists the table's labels in ascending order.
func (t TierTable) Tiers() []Tier {
	tiers := make([]Tier, len(t))
	for i, b := range t {
		tiers[i] = b.Tier
	}
	return tiers
}

// TypeDistribution is the per-tier histogram for one disaster type.
type TypeDistribution struct {
	Type   DisasterType
	Counts map[Tier]int
}

// MarshalJSON flattens the distribution into {"type": ..., "<tier>": n}.
func (d TypeDistribution) MarshalJSON() ([]byte, error) {
	row := make(map[string]any, len(d.Counts)+1)
	row["type"] = d.Type
	for tier, n := range d.Counts {
		row[string(tier)] = n
	}
	return json.Marshal(row)
}

// BuildDistribution tallies records per type and tier. Every tier of the
// table appears in each row; types with no records are omitted. Records
// without a type are skipped, and missing severities follow the given policy.
// Rows are sorted by type.
func BuildDistribution(records []NormalizedRecord, table TierTable, missing MissingSeverity) []TypeDistribution {
	byType := make(map[DisasterType]map[Tier]int)
	for _, rec := range records {
		if rec.Type == "" {
			continue
		}
		score, ok := missing.resolve(rec.Severity)
		if !ok {
			continue
		}
		counts, seen := byType[rec.Type]
		if !seen {
			counts = make(map[Tier]int, len(table))
			for _, tier := range table.Tiers() {
				counts[tier] = 0
			}
			byType[rec.Type] = counts
		}
		counts[table.Classify(score)]++
	}

	rows := make([]TypeDistribution, 0, len(byType))
	for t, counts := range byType {
		rows = append(rows, TypeDistribution{Type: t, Counts: counts})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Type < rows[j].Type })
	return rows
}
