package domain

import (
	"math"
	"time"
)

// KPIs are the headline numbers of the dashboard.
type KPIs struct {
	Records          int     `json:"records"`
	DisastersTracked int     `json:"disasters_tracked"`
	PostsLast24h     int     `json:"posts_last_24h"`
	AverageSeverity  float64 `json:"average_severity"`
}

// ComputeKPIs derives headline numbers. The 24 hour window ends at the newest
// record timestamp rather than the wall clock, matching the ranking window.
// AverageSeverity is the mean of present scores, rounded to one decimal.
func ComputeKPIs(records []NormalizedRecord, clusters []Cluster) KPIs {
	k := KPIs{Records: len(records), DisastersTracked: len(clusters)}

	var latest time.Time
	var sum float64
	var scored int
	for _, rec := range records {
		if rec.Timestamp.After(latest) {
			latest = rec.Timestamp
		}
		if rec.Severity != nil {
			sum += *rec.Severity
			scored++
		}
	}

	if !latest.IsZero() {
		cutoff := latest.Add(-24 * time.Hour)
		for _, rec := range records {
			if !rec.Timestamp.IsZero() && rec.Timestamp.After(cutoff) {
				k.PostsLast24h++
			}
		}
	}
	if scored > 0 {
		k.AverageSeverity = math.Round(sum/float64(scored)*10) / 10
	}
	return k
}
