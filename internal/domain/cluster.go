package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mmcloughlin/geohash"
)

// cellPrecision is the geohash length used for Cluster.Cell (about 5 km).
const cellPrecision = 5

// Cluster accumulates records that describe the same event at the same place.
// The first record folded in is the representative; later records only bump
// the counters.
type Cluster struct {
	Key           string       `json:"key"`
	Type          DisasterType `json:"type"`
	Location      string       `json:"location"`
	Latitude      float64      `json:"lat"`
	Longitude     float64      `json:"lng"`
	Cell          string       `json:"cell"`
	TweetCount    int          `json:"tweet_count"`
	MaxSeverity   float64      `json:"max_severity"`
	LastTimestamp time.Time    `json:"last_timestamp"`

	Representative NormalizedRecord `json:"-"`
}

func newCluster(key string, rec NormalizedRecord, severity float64) Cluster {
	lat, lng := *rec.Latitude, *rec.Longitude
	return Cluster{
		Key:            key,
		Type:           rec.Type,
		Location:       rec.Location,
		Latitude:       lat,
		Longitude:      lng,
		Cell:           geohash.EncodeWithPrecision(lat, lng, cellPrecision),
		TweetCount:     1,
		MaxSeverity:    severity,
		LastTimestamp:  rec.Timestamp,
		Representative: rec,
	}
}

func (c *Cluster) fold(rec NormalizedRecord, severity float64) {
	c.TweetCount++
	if severity > c.MaxSeverity {
		c.MaxSeverity = severity
	}
	if rec.Timestamp.After(c.LastTimestamp) {
		c.LastTimestamp = rec.Timestamp
	}
}

// ClusterStrategy groups records into clusters. Implementations fold records
// in input order and never split a cluster once formed.
type ClusterStrategy interface {
	Group(records []NormalizedRecord, missing MissingSeverity) []Cluster
}

// ClusterRecords groups records with strategy, defaulting to ExactStrategy.
// Records without a type, a location or valid coordinates are skipped, as are
// records whose severity is absent under MissingSeverityExcluded.
func ClusterRecords(records []NormalizedRecord, strategy ClusterStrategy, missing MissingSeverity) []Cluster {
	if strategy == nil {
		strategy = ExactStrategy{}
	}
	return strategy.Group(records, missing)
}

// clusterable reports whether rec can join a cluster and the severity it
// contributes.
func clusterable(rec NormalizedRecord, missing MissingSeverity) (float64, bool) {
	if rec.Type == "" || rec.Location == "" || !rec.HasCoordinates() {
		return 0, false
	}
	return missing.resolve(rec.Severity)
}

// ExactStrategy buckets records on (type, lat, lng) with coordinates rounded
// to one decimal place. Linear in the number of records.
type ExactStrategy struct{}

func (ExactStrategy) Group(records []NormalizedRecord, missing MissingSeverity) []Cluster {
	clusters := make([]Cluster, 0)
	index := make(map[string]int)

	for _, rec := range records {
		severity, ok := clusterable(rec, missing)
		if !ok {
			continue
		}
		key := exactKey(rec)
		if i, found := index[key]; found {
			clusters[i].fold(rec, severity)
			continue
		}
		index[key] = len(clusters)
		clusters = append(clusters, newCluster(key, rec, severity))
	}
	return clusters
}

func exactKey(rec NormalizedRecord) string {
	return fmt.Sprintf("%s|%.1f|%.1f", rec.Type, roundTenth(*rec.Latitude), roundTenth(*rec.Longitude))
}

func roundTenth(f float64) float64 {
	r := math.Round(f*10) / 10
	if r == 0 {
		return 0 // drop the sign of -0
	}
	return r
}

// DefaultFuzzyDelta is the coordinate distance, in degrees, under which the
// fuzzy strategy treats two records as the same place.
const DefaultFuzzyDelta = 0.5

// FuzzyStrategy merges a record into the first existing cluster of the same
// type whose location text contains (or is contained in) the record's, or
// whose representative lies within MaxDelta degrees on both axes. Quadratic in
// the worst case; cluster membership depends on input order.
type FuzzyStrategy struct {
	MaxDelta float64
}

func (s FuzzyStrategy) Group(records []NormalizedRecord, missing MissingSeverity) []Cluster {
	delta := s.MaxDelta
	if delta <= 0 {
		delta = DefaultFuzzyDelta
	}

	clusters := make([]Cluster, 0)
	for _, rec := range records {
		severity, ok := clusterable(rec, missing)
		if !ok {
			continue
		}
		if i := s.find(clusters, rec, delta); i >= 0 {
			clusters[i].fold(rec, severity)
			continue
		}
		key := fmt.Sprintf("%s|%d", rec.Type, len(clusters))
		clusters = append(clusters, newCluster(key, rec, severity))
	}
	return clusters
}

func (FuzzyStrategy) find(clusters []Cluster, rec NormalizedRecord, delta float64) int {
	loc := strings.ToLower(rec.Location)
	for i := range clusters {
		c := &clusters[i]
		if c.Type != rec.Type {
			continue
		}
		existing := strings.ToLower(c.Location)
		if strings.Contains(existing, loc) || strings.Contains(loc, existing) {
			return i
		}
		if math.Abs(c.Latitude-*rec.Latitude) < delta && math.Abs(c.Longitude-*rec.Longitude) < delta {
			return i
		}
	}
	return -1
}

// ParseClusterStrategy maps a configuration name to a strategy.
func ParseClusterStrategy(name string) (ClusterStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "exact":
		return ExactStrategy{}, nil
	case "fuzzy":
		return FuzzyStrategy{MaxDelta: DefaultFuzzyDelta}, nil
	default:
		return nil, fmt.Errorf("unknown cluster strategy %q", name)
	}
}
