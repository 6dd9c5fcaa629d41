package domain

import (
	"encoding/json"
	"slices"
	"sort"
	"time"
)

// DefaultPageSize is the number of days per trend page.
const DefaultPageSize = 3

// SeriesFilter selects the records that feed the trend and breakdown charts.
type SeriesFilter struct {
	// Types restricts to the listed types. Empty means every type.
	Types []DisasterType
	// From and To bound the calendar date, inclusive. Only their wall-clock
	// date is read, whatever zone they carry. Zero means unbounded.
	From time.Time
	To   time.Time
	// MinSeverity drops records scoring below it. Records without a severity
	// fail the check when MinSeverity > 0.
	MinSeverity float64
	// Location is the time zone that defines calendar dates. Nil means UTC.
	Location *time.Location
}

// accepts returns the record's calendar date when it passes the filter.
// Records without a type or timestamp never pass.
func (f SeriesFilter) accepts(rec NormalizedRecord) (string, bool) {
	if rec.Type == "" {
		return "", false
	}
	date, ok := rec.Date(f.Location)
	if !ok {
		return "", false
	}
	if len(f.Types) > 0 && !slices.Contains(f.Types, rec.Type) {
		return "", false
	}
	if !f.From.IsZero() && date < f.From.Format(time.DateOnly) {
		return "", false
	}
	if !f.To.IsZero() && date > f.To.Format(time.DateOnly) {
		return "", false
	}
	if f.MinSeverity > 0 && (rec.Severity == nil || *rec.Severity < f.MinSeverity) {
		return "", false
	}
	return date, true
}

// DayCounts holds per-type record counts for one calendar date.
type DayCounts struct {
	Date   string
	Counts map[DisasterType]int
	Total  int
}

// MarshalJSON renders the chart row shape {"date": ..., "<type>": n}.
func (d DayCounts) MarshalJSON() ([]byte, error) {
	row := make(map[string]any, len(d.Counts)+1)
	row["date"] = d.Date
	for t, n := range d.Counts {
		row[string(t)] = n
	}
	return json.Marshal(row)
}

// AggregateByDay counts filtered records per calendar date and type. Rows are
// sorted by ascending date.
func AggregateByDay(records []NormalizedRecord, filter SeriesFilter) []DayCounts {
	byDate := make(map[string]*DayCounts)
	for _, rec := range records {
		date, ok := filter.accepts(rec)
		if !ok {
			continue
		}
		day, seen := byDate[date]
		if !seen {
			day = &DayCounts{Date: date, Counts: make(map[DisasterType]int)}
			byDate[date] = day
		}
		day.Counts[rec.Type]++
		day.Total++
	}

	days := make([]DayCounts, 0, len(byDate))
	for _, day := range byDate {
		days = append(days, *day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days
}

// Page is one window of the day axis.
type Page struct {
	Page      int         `json:"page"`
	PageCount int         `json:"page_count"`
	PageSize  int         `json:"page_size"`
	Days      []DayCounts `json:"days"`
}

// PagedSlice returns page (0-based) of days. Pages past either end clamp to
// the first or last page; a non-positive size selects DefaultPageSize.
func PagedSlice(days []DayCounts, page, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	count := (len(days) + size - 1) / size
	if page >= count {
		page = count - 1
	}
	if page < 0 {
		page = 0
	}

	start := min(page*size, len(days))
	end := min(start+size, len(days))
	return Page{
		Page:      page,
		PageCount: count,
		PageSize:  size,
		Days:      append(make([]DayCounts, 0, end-start), days[start:end]...),
	}
}

// TypeCount is one slice of the breakdown chart.
type TypeCount struct {
	Type  DisasterType `json:"type"`
	Count int          `json:"count"`
}

// TypeBreakdown totals filtered records per type, largest first, ties by type.
func TypeBreakdown(records []NormalizedRecord, filter SeriesFilter) []TypeCount {
	counts := make(map[DisasterType]int)
	for _, rec := range records {
		if _, ok := filter.accepts(rec); ok {
			counts[rec.Type]++
		}
	}

	rows := make([]TypeCount, 0, len(counts))
	for t, n := range counts {
		rows = append(rows, TypeCount{Type: t, Count: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Type < rows[j].Type
	})
	return rows
}
