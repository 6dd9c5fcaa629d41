package domain

import (
	"context"
	"log/slog"
	"strings"
)

// GeocodeOutcome tallies one EnrichCoordinates call.
type GeocodeOutcome struct {
	Resolved int
	Empty    int
	Failed   int
	Skipped  int // over the lookup limit
}

// EnrichCoordinates fills in coordinates for records that name a location and
// a type but carry no usable coordinates, so they can take part in clustering.
// Each distinct location is looked up once; at most limit lookups are made
// (limit <= 0 means no limit). A nil geocoder returns records unchanged.
//
// Failures degrade: the record keeps its missing coordinates and GeoSource is
// set to "failed". The input slice is not modified.
func EnrichCoordinates(ctx context.Context, records []NormalizedRecord, geocoder Geocoder, limit int, logger *slog.Logger) ([]NormalizedRecord, GeocodeOutcome) {
	var outcome GeocodeOutcome
	if geocoder == nil {
		return records, outcome
	}

	type lookup struct {
		result GeocodingResult
		err    error
	}
	lookups := make(map[string]lookup)

	out := make([]NormalizedRecord, len(records))
	copy(out, records)
	for i := range out {
		rec := &out[i]
		if rec.Type == "" || rec.Location == "" || rec.HasCoordinates() {
			continue
		}

		key := strings.ToLower(rec.Location)
		l, seen := lookups[key]
		if !seen {
			if limit > 0 && len(lookups) >= limit {
				outcome.Skipped++
				continue
			}
			result, err := geocoder.ForwardGeocode(ctx, rec.Location)
			l = lookup{result: result, err: err}
			lookups[key] = l
			if err != nil {
				logger.Warn("forward geocoding failed",
					"record_id", rec.ID,
					"location", rec.Location,
					"error", err,
				)
			}
		}

		switch {
		case l.err != nil:
			rec.GeoSource = "failed"
			outcome.Failed++
		case l.result.Found():
			lat, lon := l.result.Lat, l.result.Lon
			rec.Latitude = &lat
			rec.Longitude = &lon
			rec.GeoSource = "forward"
			outcome.Resolved++
		default:
			outcome.Empty++
		}
	}
	return out, outcome
}
