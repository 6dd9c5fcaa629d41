package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []NormalizedRecord {
	n := NewNormalizer(nil)
	return n.NormalizeAll([]RawRecord{
		{ID: "1", DisasterType: "wildfire", Location: "Los Angeles", SeverityScore: "8.5", Latitude: 34.06, Longitude: -118.24, Timestamp: "2024-03-02T10:00:00Z", GenuineDisaster: "true", Text: "fire spreading"},
		{ID: "2", DisasterType: "Forest Fire", Location: "Los Angeles", SeverityScore: 6.0, Latitude: 34.07, Longitude: -118.21, Timestamp: "2024-03-02T11:00:00Z", GenuineDisaster: true},
		{ID: "3", DisasterType: "flooding", Location: "Houston", SeverityScore: "None", Latitude: 29.76, Longitude: -95.37, Timestamp: "2024-03-01T09:00:00Z", GenuineDisaster: "true"},
		{ID: "4", DisasterType: "earthquake", Location: "Tokyo", SeverityScore: 3.2, Latitude: 35.68, Longitude: 139.69, Timestamp: "2024-03-02T01:00:00Z", GenuineDisaster: "false"},
		{ID: "5", DisasterType: "None", Location: "None", SeverityScore: "None", Timestamp: "2024-03-02T02:00:00Z", GenuineDisaster: "false", Text: "great game tonight"},
	})
}

func TestBuildDashboard(t *testing.T) {
	records := sampleRecords()
	require.Len(t, records, 5)

	d := BuildDashboard(records, DashboardQuery{}, ViewOptions{})

	require.Len(t, d.Clusters, 3)
	assert.Len(t, d.Heat, 3)
	require.NotEmpty(t, d.TopLocations)
	assert.Equal(t, "Los Angeles", d.TopLocations[0].Location)
	assert.Equal(t, 2, d.TopLocations[0].Count)

	require.Len(t, d.Ranked, 2)
	assert.Equal(t, "1", d.Ranked[0].ID)
	assert.Equal(t, "2", d.Ranked[1].ID)

	require.Len(t, d.Trends.Days, 2)
	assert.Equal(t, "2024-03-01", d.Trends.Days[0].Date)
	assert.Equal(t, 3, d.Trends.Days[1].Total)

	assert.Equal(t, []TypeCount{
		{Type: TypeFire, Count: 2},
		{Type: TypeEarthquake, Count: 1},
		{Type: TypeFlood, Count: 1},
	}, d.Breakdown)

	assert.Equal(t, KPIs{Records: 5, DisastersTracked: 3, PostsLast24h: 4, AverageSeverity: 5.9}, d.KPIs)
}

func TestBuildDashboard_QueryFiltersCharts(t *testing.T) {
	records := sampleRecords()

	d := BuildDashboard(records, DashboardQuery{
		Types:       []DisasterType{TypeFire},
		MinSeverity: 7,
	}, ViewOptions{})

	require.Len(t, d.Trends.Days, 1)
	assert.Equal(t, 1, d.Trends.Days[0].Total)
	assert.Equal(t, []TypeCount{{Type: TypeFire, Count: 1}}, d.Breakdown)
	assert.Len(t, d.Clusters, 3, "the map is not filtered")
}

func TestBuildDashboard_Deterministic(t *testing.T) {
	records := sampleRecords()
	opts := ViewOptions{Strategy: FuzzyStrategy{}, Tiers: FourTier(), Genuine: GenuineAssumed, PageSize: 1}
	q := DashboardQuery{From: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}

	first := BuildDashboard(records, q, opts)
	second := BuildDashboard(records, q, opts)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("dashboard differs between runs (-first +second):\n%s", diff)
	}

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestBuildDashboard_Empty(t *testing.T) {
	d := BuildDashboard(nil, DashboardQuery{}, ViewOptions{})

	assert.Empty(t, d.Clusters)
	assert.Empty(t, d.Ranked)
	assert.Empty(t, d.Trends.Days)
	assert.Equal(t, KPIs{}, d.KPIs)
}

func TestComputeKPIs_WindowAnchoredToNewestRecord(t *testing.T) {
	records := []NormalizedRecord{
		{Timestamp: at("2024-03-10T12:00:00Z"), Severity: ptr(4)},
		{Timestamp: at("2024-03-09T13:00:00Z"), Severity: ptr(5)},
		{Timestamp: at("2024-03-09T12:00:00Z")},
		{Severity: ptr(6.333)},
	}

	k := ComputeKPIs(records, nil)

	assert.Equal(t, 4, k.Records)
	assert.Equal(t, 2, k.PostsLast24h)
	assert.Equal(t, 5.1, k.AverageSeverity)
}
