package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Coercion table for RawRecord values.
//
//	source value         text           number           flag            instant
//	nil                  ""             absent           unknown         absent
//	sentinel string (*)  ""             absent           unknown         absent
//	other string         trimmed        ParseFloat       true/false set  layouts below
//	float / int / Number formatted      value if finite  non-zero=true   unix seconds (ms above 1e12)
//	bool                 "true"/"false" absent           value           absent
//	time.Time            RFC 3339       absent           unknown         value
//
// (*) sentinels, case-insensitive: "", "none", "null", "nil", "nan", "n/a",
// "na", "not specified", "unknown", "undefined".
//
// Values that do not parse degrade to absent. Coercion never fails.

var sentinelStrings = map[string]struct{}{
	"":              {},
	"none":          {},
	"null":          {},
	"nil":           {},
	"nan":           {},
	"n/a":           {},
	"na":            {},
	"not specified": {},
	"unknown":       {},
	"undefined":     {},
}

// timestampLayouts are tried in order. Layouts without a zone parse as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z07",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05Z07",
	"2006-01-02 15:04:05",
	time.DateOnly,
	"01/02/2006 15:04",
	"01/02/2006",
}

func isSentinel(s string) bool {
	_, ok := sentinelStrings[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

func coerceText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case *string:
		if x == nil {
			return ""
		}
		return strings.TrimSpace(*x)
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return ""
	}
}

// coerceOptionalText is coerceText with sentinel strings mapped to "".
func coerceOptionalText(v any) string {
	s := coerceText(v)
	if isSentinel(s) {
		return ""
	}
	return s
}

func coerceFloat(v any) *float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int64:
		f = float64(x)
	case int:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string, *string:
		s := coerceText(x)
		if isSentinel(s) {
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func coerceGenuine(v any) Genuineness {
	switch x := v.(type) {
	case bool:
		if x {
			return GenuineTrue
		}
		return GenuineFalse
	case string, *string:
		switch strings.ToLower(coerceText(x)) {
		case "true", "t", "yes", "y", "1":
			return GenuineTrue
		case "false", "f", "no", "n", "0":
			return GenuineFalse
		}
		return GenuineUnknown
	case nil:
		return GenuineUnknown
	default:
		f := coerceFloat(x)
		if f == nil {
			return GenuineUnknown
		}
		if *f != 0 {
			return GenuineTrue
		}
		return GenuineFalse
	}
}

func coerceTime(v any) time.Time {
	switch x := v.(type) {
	case time.Time:
		return x
	case *time.Time:
		if x == nil {
			return time.Time{}
		}
		return *x
	case string, *string:
		s := coerceText(x)
		if isSentinel(s) {
			return time.Time{}
		}
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
		return time.Time{}
	case nil:
		return time.Time{}
	default:
		f := coerceFloat(x)
		if f == nil || *f <= 0 {
			return time.Time{}
		}
		secs := *f
		if secs > 1e12 {
			secs /= 1000
		}
		whole, frac := math.Modf(secs)
		return time.Unix(int64(whole), int64(frac*1e9)).UTC()
	}
}
