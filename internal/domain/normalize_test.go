package domain

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeTable_Classify(t *testing.T) {
	table := DefaultTypeTable()
	tests := []struct {
		raw  string
		want DisasterType
	}{
		{"Wildfire", TypeFire},
		{"Flash Flood", TypeFlood},
		{"Cyclone", TypeHurricane},
		{"typhoon", TypeHurricane},
		{"Tropical Storm", TypeHurricane},
		{"Dust Storm", TypeDustStorm},
		{"Snowstorm", TypeBlizzard},
		{"Thunderstorm", TypeLightning},
		{"Heat Wave", TypeHeatwave},
		{"Cold Snap", TypeColdWave},
		{"Volcanic eruption", TypeVolcano},
		{"Mudslide", TypeLandslide},
		{"Tsunami", TypeTsunami},
		{"EARTHQUAKE", TypeEarthquake},
		{"Tornado", TypeTornado},
		{"Drought", TypeDrought},
		{"Locust swarm", TypeOther},
		{"None", ""},
		{"Not Specified", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, table.Classify(tt.raw))
		})
	}
}

func TestTypeTable_FirstRuleWins(t *testing.T) {
	table := TypeTable{
		{TypeHurricane, []string{"storm"}},
		{TypeDustStorm, []string{"dust storm"}},
	}
	assert.Equal(t, TypeHurricane, table.Classify("dust storm"))
}

func TestNormalize_Coercion(t *testing.T) {
	n := NewNormalizer(nil)

	t.Run("string fields", func(t *testing.T) {
		rec, ok := n.Normalize(RawRecord{
			ID:              "42",
			DisasterType:    "  Flash Flood ",
			Location:        " Houston, TX ",
			SeverityScore:   "8.5",
			Latitude:        "29.76",
			Longitude:       "-95.36",
			Timestamp:       "2024-08-26 14:00:00",
			GenuineDisaster: "True",
			Text:            "water rising fast",
		})
		require.True(t, ok)
		assert.Equal(t, "42", rec.ID)
		assert.Equal(t, "flash flood", rec.RawType)
		assert.Equal(t, TypeFlood, rec.Type)
		assert.Equal(t, "Houston, TX", rec.Location)
		require.NotNil(t, rec.Severity)
		assert.Equal(t, 8.5, *rec.Severity)
		assert.Equal(t, 29.76, *rec.Latitude)
		assert.Equal(t, -95.36, *rec.Longitude)
		assert.Equal(t, time.Date(2024, 8, 26, 14, 0, 0, 0, time.UTC), rec.Timestamp)
		assert.Equal(t, GenuineTrue, rec.Genuine)
		assert.Equal(t, "original", rec.GeoSource)
	})

	t.Run("non-genuine sentinel row", func(t *testing.T) {
		rec, ok := n.Normalize(RawRecord{
			DisasterType:    "None",
			Location:        "None",
			SeverityScore:   "None",
			Latitude:        "None",
			Longitude:       "None",
			Timestamp:       "2024-08-26T14:00:00Z",
			GenuineDisaster: false,
			Text:            "just a normal day",
		})
		require.True(t, ok)
		assert.Empty(t, rec.Type)
		assert.Empty(t, rec.Location)
		assert.Nil(t, rec.Severity)
		assert.Nil(t, rec.Latitude)
		assert.Equal(t, GenuineFalse, rec.Genuine)
		assert.Empty(t, rec.GeoSource)
	})

	t.Run("numeric values", func(t *testing.T) {
		rec, ok := n.Normalize(RawRecord{
			DisasterType:  "fire",
			SeverityScore: json.Number("3"),
			Latitude:      34.1,
			Longitude:     int64(-118),
			Timestamp:     float64(1700000000),
		})
		require.True(t, ok)
		assert.Equal(t, 3.0, *rec.Severity)
		assert.Equal(t, -118.0, *rec.Longitude)
		assert.Equal(t, time.Unix(1700000000, 0).UTC(), rec.Timestamp)
	})

	t.Run("non-finite coordinates are absent", func(t *testing.T) {
		rec, ok := n.Normalize(RawRecord{DisasterType: "flood", Latitude: math.NaN(), Longitude: math.Inf(1)})
		require.True(t, ok)
		assert.Nil(t, rec.Latitude)
		assert.Nil(t, rec.Longitude)
		assert.False(t, rec.HasCoordinates())
	})

	t.Run("out of range coordinates are not usable", func(t *testing.T) {
		rec, _ := n.Normalize(RawRecord{DisasterType: "flood", Latitude: "120", Longitude: "10"})
		assert.False(t, rec.HasCoordinates())
	})
}

func TestNormalize_Timestamps(t *testing.T) {
	want := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		raw  any
		want time.Time
	}{
		{"rfc3339", "2024-03-01T10:00:00Z", want},
		{"rfc3339 offset", "2024-03-01T12:00:00+02:00", want},
		{"fractional no zone", "2024-03-01T10:00:00.000000", want},
		{"postgres text", "2024-03-01 10:00:00+00", want},
		{"space separated", "2024-03-01 10:00:00", want},
		{"date only", "2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"unix millis", float64(want.UnixMilli()), want},
		{"time value", want, want},
		{"garbage", "yesterday-ish", time.Time{}},
		{"sentinel", "None", time.Time{}},
		{"nil", nil, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := coerceTime(tt.raw)
			assert.True(t, tt.want.Equal(got), "want %v, got %v", tt.want, got)
		})
	}
}

func TestNormalize_Genuineness(t *testing.T) {
	tests := []struct {
		raw  any
		want Genuineness
	}{
		{true, GenuineTrue},
		{false, GenuineFalse},
		{"True", GenuineTrue},
		{"FALSE", GenuineFalse},
		{"yes", GenuineTrue},
		{"maybe", GenuineUnknown},
		{nil, GenuineUnknown},
		{json.Number("1"), GenuineTrue},
		{0.0, GenuineFalse},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, coerceGenuine(tt.raw), "input %#v", tt.raw)
	}
}

func TestNormalize_IsTotal(t *testing.T) {
	n := NewNormalizer(nil)
	values := []any{
		nil, "", "None", "null", "NaN", "-", "1e400", "abc", " 12 ", json.Number("x"),
		math.NaN(), math.Inf(-1), true, float32(2.5), int64(7), []string{"nested"},
		map[string]any{"a": 1}, struct{}{},
	}
	for _, v := range values {
		raw := RawRecord{
			ID: v, DisasterType: v, Location: v, SeverityScore: v, Latitude: v,
			Longitude: v, Timestamp: v, GenuineDisaster: v, Text: v,
		}
		assert.NotPanics(t, func() { n.Normalize(raw) }, "input %#v", v)
	}
}

func TestNormalize_RejectsEmptyRecord(t *testing.T) {
	n := NewNormalizer(nil)

	_, ok := n.Normalize(RawRecord{})
	assert.False(t, ok)

	_, ok = n.Normalize(RawRecord{DisasterType: "None", Location: "Not Specified", SeverityScore: "None"})
	assert.False(t, ok)

	out := n.NormalizeAll([]RawRecord{{}, {DisasterType: "flood"}, {}})
	assert.Len(t, out, 1)
}

func TestNormalize_DeterministicID(t *testing.T) {
	n := NewNormalizer(nil)
	raw := RawRecord{DisasterType: "flood", Location: "Dhaka", Text: "streets under water", Timestamp: "2024-07-01T08:00:00Z"}

	a, _ := n.Normalize(raw)
	b, _ := n.Normalize(raw)
	assert.Equal(t, a.ID, b.ID)
	assert.Regexp(t, `^rec-[0-9a-f]{16}$`, a.ID)

	raw.Text = "different post"
	c, _ := n.Normalize(raw)
	assert.NotEqual(t, a.ID, c.ID)
}

func TestRawRecord_UnmarshalJSONAliases(t *testing.T) {
	t.Run("csv headers", func(t *testing.T) {
		data := []byte(`{"Tweet ID":"1","Disaster Type":"Flood","Location":"Houston","Severity Score":"8.5",
			"Latitude":"29.76","Longitude":"-95.36","Timestamp":"2024-08-26 14:00:00","Genuine Disaster":"True","Tweet":"water rising"}`)
		var raw RawRecord
		require.NoError(t, json.Unmarshal(data, &raw))
		assert.Equal(t, "1", raw.ID)
		assert.Equal(t, "Flood", raw.DisasterType)
		assert.Equal(t, "8.5", raw.SeverityScore)
		assert.Equal(t, "water rising", raw.Text)
	})

	t.Run("camel case", func(t *testing.T) {
		data := []byte(`{"disasterType":"fire","lat":34.1,"lng":-118.3,"severityScore":6,"genuine":true,"text":"smoke"}`)
		var raw RawRecord
		require.NoError(t, json.Unmarshal(data, &raw))

		rec, ok := NewNormalizer(nil).Normalize(raw)
		require.True(t, ok)
		assert.Equal(t, TypeFire, rec.Type)
		assert.Equal(t, 34.1, *rec.Latitude)
		assert.Equal(t, -118.3, *rec.Longitude)
		assert.Equal(t, 6.0, *rec.Severity)
		assert.Equal(t, GenuineTrue, rec.Genuine)
		assert.Equal(t, "smoke", rec.Text)
	})

	t.Run("encoding uses column names", func(t *testing.T) {
		out, err := json.Marshal(RawRecord{DisasterType: "flood", Text: "help"})
		require.NoError(t, err)
		assert.Contains(t, string(out), `"disaster_type":"flood"`)
		assert.Contains(t, string(out), `"tweet":"help"`)
	})

	t.Run("not an object", func(t *testing.T) {
		var raw RawRecord
		assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &raw))
	})
}
