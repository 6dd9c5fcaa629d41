package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// Normalizer turns RawRecords into NormalizedRecords using an injected
// synonym table. It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	types TypeTable
}

// NewNormalizer returns a Normalizer for the given table. A nil table selects
// DefaultTypeTable.
func NewNormalizer(types TypeTable) *Normalizer {
	if types == nil {
		types = DefaultTypeTable()
	}
	return &Normalizer{types: types}
}

// Normalize cleans one raw record. It never fails: malformed fields degrade to
// absent values. The second result is false only when the record carries no
// usable field at all.
func (n *Normalizer) Normalize(raw RawRecord) (NormalizedRecord, bool) {
	rawType := strings.ToLower(coerceText(raw.DisasterType))
	rec := NormalizedRecord{
		ID:        coerceOptionalText(raw.ID),
		RawType:   rawType,
		Type:      n.types.Classify(rawType),
		Location:  coerceOptionalText(raw.Location),
		Severity:  coerceFloat(raw.SeverityScore),
		Latitude:  coerceFloat(raw.Latitude),
		Longitude: coerceFloat(raw.Longitude),
		Timestamp: coerceTime(raw.Timestamp),
		Genuine:   coerceGenuine(raw.GenuineDisaster),
		Text:      coerceText(raw.Text),
	}

	if rec.Type == "" && rec.Location == "" && rec.Text == "" &&
		rec.Severity == nil && rec.Timestamp.IsZero() &&
		rec.Latitude == nil && rec.Longitude == nil {
		return NormalizedRecord{}, false
	}

	if rec.HasCoordinates() {
		rec.GeoSource = "original"
	}
	if rec.ID == "" {
		rec.ID = generateID(rec)
	}
	return rec, true
}

// NormalizeAll normalizes raws in order, skipping rejected records.
func (n *Normalizer) NormalizeAll(raws []RawRecord) []NormalizedRecord {
	out := make([]NormalizedRecord, 0, len(raws))
	for _, raw := range raws {
		if rec, ok := n.Normalize(raw); ok {
			out = append(out, rec)
		}
	}
	return out
}

// generateID derives a deterministic ID for rows that arrive without one, so
// repeated runs over the same data produce the same output.
func generateID(rec NormalizedRecord) string {
	parts := []string{
		rec.RawType,
		rec.Location,
		rec.Text,
		formatOptional(rec.Latitude),
		formatOptional(rec.Longitude),
	}
	if !rec.Timestamp.IsZero() {
		parts = append(parts, rec.Timestamp.UTC().Format(time.RFC3339Nano))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return "rec-" + hex.EncodeToString(sum[:8])
}

func formatOptional(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', 6, 64)
}
