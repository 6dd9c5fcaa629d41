package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DefaultTopN is the ranked table length.
const DefaultTopN = 10

// lastUpdatedLayout renders timestamps as "03/14/25 at 2:05 PM".
const lastUpdatedLayout = "01/02/06 at 3:04 PM"

// GenuinePolicy decides which records count as genuine disasters. Callers
// must choose one; the zero value behaves like GenuineRequired.
type GenuinePolicy int

const (
	// GenuineRequired admits only records explicitly flagged genuine.
	GenuineRequired GenuinePolicy = iota + 1
	// GenuineAssumed admits records flagged genuine or carrying no flag.
	GenuineAssumed
	// GenuineUnfiltered admits every record.
	GenuineUnfiltered
)

func (p GenuinePolicy) admits(g Genuineness) bool {
	switch p {
	case GenuineUnfiltered:
		return true
	case GenuineAssumed:
		return g != GenuineFalse
	default:
		return g == GenuineTrue
	}
}

// ParseGenuinePolicy maps "strict", "assume" and "ignore" to a policy.
func ParseGenuinePolicy(name string) (GenuinePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "strict":
		return GenuineRequired, nil
	case "assume":
		return GenuineAssumed, nil
	case "ignore":
		return GenuineUnfiltered, nil
	default:
		return 0, fmt.Errorf("unknown genuine policy %q", name)
	}
}

// RankWindow limits which dates take part in the ranking.
type RankWindow int

const (
	// WindowLatestDay keeps records on the latest calendar date present in the
	// input. The input lags real time, so the latest date is taken from the
	// data rather than the clock.
	WindowLatestDay RankWindow = iota
	// WindowAll disables the date restriction.
	WindowAll
)

// RankOptions configures TopN.
type RankOptions struct {
	N        int       // defaults to DefaultTopN
	Tiers    TierTable // defaults to ThreeTier
	Window   RankWindow
	Location *time.Location // defines calendar dates; nil means UTC
}

// RankedRecord is one row of the ranked table.
type RankedRecord struct {
	Rank        int       `json:"rank"`
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	Location    string    `json:"location"`
	Type        string    `json:"type"`
	Tier        Tier      `json:"tier"`
	Score       float64   `json:"score"`
	LastUpdated string    `json:"last_updated"`
	Timestamp   time.Time `json:"timestamp"`
}

// TopN ranks eligible records by severity, highest first, keeping input order
// among equal scores. A record is eligible when genuine admits it, its
// severity is present and strictly positive, and it names a location.
func TopN(records []NormalizedRecord, genuine GenuinePolicy, opts RankOptions) []RankedRecord {
	n := opts.N
	if n <= 0 {
		n = DefaultTopN
	}
	tiers := opts.Tiers
	if len(tiers) == 0 {
		tiers = ThreeTier()
	}

	latest, windowed := latestDate(records, opts)

	eligible := make([]NormalizedRecord, 0, len(records))
	for _, rec := range records {
		if !genuine.admits(rec.Genuine) {
			continue
		}
		if rec.Severity == nil || *rec.Severity <= 0 {
			continue
		}
		if rec.Location == "" {
			continue
		}
		if windowed {
			date, ok := rec.Date(opts.Location)
			if !ok || date != latest {
				continue
			}
		}
		eligible = append(eligible, rec)
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return *eligible[i].Severity > *eligible[j].Severity
	})
	if len(eligible) > n {
		eligible = eligible[:n]
	}

	ranked := make([]RankedRecord, len(eligible))
	for i, rec := range eligible {
		ranked[i] = RankedRecord{
			Rank:        i + 1,
			ID:          rec.ID,
			Text:        rec.Text,
			Location:    rec.Location,
			Type:        DisplayType(rec.Type),
			Tier:        tiers.Classify(*rec.Severity),
			Score:       *rec.Severity,
			LastUpdated: formatLastUpdated(rec.Timestamp, opts.Location),
			Timestamp:   rec.Timestamp,
		}
	}
	return ranked
}

// latestDate returns the most recent calendar date over all records. The
// window is off when disabled or when no record has a timestamp.
func latestDate(records []NormalizedRecord, opts RankOptions) (string, bool) {
	if opts.Window == WindowAll {
		return "", false
	}
	var latest time.Time
	for _, rec := range records {
		if rec.Timestamp.After(latest) {
			latest = rec.Timestamp
		}
	}
	if latest.IsZero() {
		return "", false
	}
	return calendarDate(latest, opts.Location), true
}

func formatLastUpdated(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(lastUpdatedLayout)
}
