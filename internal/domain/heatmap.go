package domain

import (
	"math"
	"slices"
	"sort"
	"strings"
)

// MaxSeverityScore is the top of the upstream severity scale. The classifier
// averages four 0-10 sub-scores, so scores fall in [0, 10].
const MaxSeverityScore = 10.0

// HeatPoint is one weighted point of the map heat layer.
type HeatPoint struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Intensity float64 `json:"intensity"`
}

// HeatPoints converts clusters to heat-layer points. Intensity is the
// cluster's max severity scaled to [0, 1].
func HeatPoints(clusters []Cluster) []HeatPoint {
	points := make([]HeatPoint, 0, len(clusters))
	for _, c := range clusters {
		points = append(points, HeatPoint{
			Lat:       c.Latitude,
			Lng:       c.Longitude,
			Intensity: clamp01(c.MaxSeverity / MaxSeverityScore),
		})
	}
	return points
}

func clamp01(f float64) float64 {
	switch {
	case f < 0 || math.IsNaN(f):
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}

// LocationCount is one row of the "top affected locations" view.
type LocationCount struct {
	Location    string         `json:"location"`
	Count       int            `json:"count"`
	MaxSeverity float64        `json:"max_severity"`
	Types       []DisasterType `json:"types"`
}

// TopLocations sums cluster tweet counts per location (case-insensitive) and
// returns the n largest, ties in first-seen order. n <= 0 returns every
// location.
func TopLocations(clusters []Cluster, n int) []LocationCount {
	rows := make([]LocationCount, 0)
	index := make(map[string]int)

	for _, c := range clusters {
		key := strings.ToLower(c.Location)
		i, ok := index[key]
		if !ok {
			i = len(rows)
			index[key] = i
			rows = append(rows, LocationCount{Location: c.Location, Types: []DisasterType{}})
		}
		row := &rows[i]
		row.Count += c.TweetCount
		if c.MaxSeverity > row.MaxSeverity {
			row.MaxSeverity = c.MaxSeverity
		}
		if !slices.Contains(row.Types, c.Type) {
			row.Types = append(row.Types, c.Type)
		}
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Count > rows[j].Count })
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	return rows
}
