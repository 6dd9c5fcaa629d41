package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// RawRecord is one row of the classification output table as delivered by the
// data source. Every field is loosely typed: nil, string, float64, int64, bool,
// json.Number or time.Time. Coercion into typed values happens in Normalize;
// see coerce.go for the table.
//
// JSON decoding accepts several spellings of each logical field
// ("disaster_type", "Disaster Type", "disasterType" all land in DisasterType).
// Encoding always uses the snake_case column names.
type RawRecord struct {
	ID              any `json:"id"`
	DisasterType    any `json:"disaster_type"`
	Location        any `json:"location"`
	SeverityScore   any `json:"severity_score"`
	Latitude        any `json:"latitude"`
	Longitude       any `json:"longitude"`
	Timestamp       any `json:"timestamp"`
	GenuineDisaster any `json:"genuine_disaster"`
	Text            any `json:"tweet"`
}

// rawFieldAliases maps folded field names (lower-case, alphanumerics only) to
// a setter on RawRecord. The first alias present in a row wins, in the order
// listed per field.
var rawFieldAliases = []struct {
	aliases []string
	set     func(r *RawRecord, v any)
}{
	{[]string{"id", "tweetid", "postid"}, func(r *RawRecord, v any) { r.ID = v }},
	{[]string{"disastertype", "type"}, func(r *RawRecord, v any) { r.DisasterType = v }},
	{[]string{"location", "place"}, func(r *RawRecord, v any) { r.Location = v }},
	{[]string{"severityscore", "severity"}, func(r *RawRecord, v any) { r.SeverityScore = v }},
	{[]string{"latitude", "lat"}, func(r *RawRecord, v any) { r.Latitude = v }},
	{[]string{"longitude", "lng", "lon", "long"}, func(r *RawRecord, v any) { r.Longitude = v }},
	{[]string{"timestamp", "createdat", "time", "date"}, func(r *RawRecord, v any) { r.Timestamp = v }},
	{[]string{"genuinedisaster", "genuine", "isgenuine"}, func(r *RawRecord, v any) { r.GenuineDisaster = v }},
	{[]string{"tweet", "tweettext", "text", "body", "content"}, func(r *RawRecord, v any) { r.Text = v }},
}

// UnmarshalJSON decodes a JSON object, resolving field aliases.
func (r *RawRecord) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return fmt.Errorf("decode raw record: %w", err)
	}
	*r = RawRecordFromMap(fields)
	return nil
}

// RawRecordFromMap builds a RawRecord from an untyped row, resolving field
// aliases. Unknown keys are ignored.
func RawRecordFromMap(fields map[string]any) RawRecord {
	folded := make(map[string]any, len(fields))
	for k, v := range fields {
		fk := foldFieldName(k)
		if _, dup := folded[fk]; !dup {
			folded[fk] = v
		}
	}

	var r RawRecord
	for _, f := range rawFieldAliases {
		for _, alias := range f.aliases {
			if v, ok := folded[alias]; ok {
				f.set(&r, v)
				break
			}
		}
	}
	return r
}

func foldFieldName(name string) string {
	var b strings.Builder
	for _, c := range strings.ToLower(name) {
		if unicode.IsLetter(c) || unicode.IsDigit(c) {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// Genuineness is the tri-state genuine_disaster flag.
type Genuineness int8

const (
	GenuineUnknown Genuineness = iota
	GenuineFalse
	GenuineTrue
)

func (g Genuineness) String() string {
	switch g {
	case GenuineTrue:
		return "true"
	case GenuineFalse:
		return "false"
	default:
		return "unknown"
	}
}

// NormalizedRecord is a cleaned classification record. Optional values are
// nil pointers (or the zero time) when absent in the source.
type NormalizedRecord struct {
	ID string `json:"id"`
	// RawType is the source disaster type, lower-cased and trimmed.
	RawType   string       `json:"raw_type"`
	Type      DisasterType `json:"type"`
	Location  string       `json:"location"`
	Severity  *float64     `json:"severity,omitempty"`
	Latitude  *float64     `json:"latitude,omitempty"`
	Longitude *float64     `json:"longitude,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
	Genuine   Genuineness  `json:"-"`
	Text      string       `json:"text"`

	// GeoSource records where the coordinates came from: "original",
	// "forward" (geocoded from the location text), "failed", or empty when
	// the record has no coordinates and no lookup was attempted.
	GeoSource string `json:"geo_source,omitempty"`
}

// HasCoordinates reports whether both coordinates are present and inside the
// valid latitude/longitude ranges.
func (r NormalizedRecord) HasCoordinates() bool {
	if r.Latitude == nil || r.Longitude == nil {
		return false
	}
	lat, lng := *r.Latitude, *r.Longitude
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Date returns the calendar date of the record in loc as YYYY-MM-DD. The
// second result is false when the record has no timestamp.
func (r NormalizedRecord) Date(loc *time.Location) (string, bool) {
	if r.Timestamp.IsZero() {
		return "", false
	}
	return calendarDate(r.Timestamp, loc), true
}

func calendarDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(time.DateOnly)
}

// MissingSeverity selects how a consumer treats records whose severity is
// absent. There is no implicit default: each view names its policy.
type MissingSeverity int

const (
	// MissingSeverityExcluded drops records without a severity from the view.
	MissingSeverityExcluded MissingSeverity = iota + 1
	// MissingSeverityAsZero counts a missing severity as 0.
	MissingSeverityAsZero
)

// resolve returns the severity to use and whether the record takes part.
func (p MissingSeverity) resolve(score *float64) (float64, bool) {
	if score != nil {
		return *score, true
	}
	if p == MissingSeverityAsZero {
		return 0, true
	}
	return 0, false
}
