package domain

import (
	"io"
	"log/slog"
	"time"
)

func ptr(f float64) *float64 { return &f }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

// geoRecord builds a clusterable record.
func geoRecord(typ DisasterType, location string, lat, lng float64, severity *float64) NormalizedRecord {
	return NormalizedRecord{
		ID:        location,
		Type:      typ,
		RawType:   string(typ),
		Location:  location,
		Severity:  severity,
		Latitude:  ptr(lat),
		Longitude: ptr(lng),
		Genuine:   GenuineTrue,
	}
}
