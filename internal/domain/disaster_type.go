package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DisasterType is one of the closed set of normalized disaster categories.
// The empty value means the source row carried no usable type.
type DisasterType string

const (
	TypeFlood      DisasterType = "flood"
	TypeFire       DisasterType = "fire"
	TypeEarthquake DisasterType = "earthquake"
	TypeHurricane  DisasterType = "hurricane"
	TypeTornado    DisasterType = "tornado"
	TypeLandslide  DisasterType = "landslide"
	TypeDrought    DisasterType = "drought"
	TypeVolcano    DisasterType = "volcano"
	TypeBlizzard   DisasterType = "blizzard"
	TypeHeatwave   DisasterType = "heatwave"
	TypeColdWave   DisasterType = "cold wave"
	TypeDustStorm  DisasterType = "dust storm"
	TypeTsunami    DisasterType = "tsunami"
	TypeLightning  DisasterType = "lightning"
	TypeOther      DisasterType = "other"
)

// AllDisasterTypes lists the closed set in display order.
func AllDisasterTypes() []DisasterType {
	return []DisasterType{
		TypeFlood, TypeFire, TypeEarthquake, TypeHurricane, TypeTornado,
		TypeLandslide, TypeDrought, TypeVolcano, TypeBlizzard, TypeHeatwave,
		TypeColdWave, TypeDustStorm, TypeTsunami, TypeLightning, TypeOther,
	}
}

// ParseDisasterType matches s against the closed set, ignoring case and
// surrounding whitespace. It does not apply synonym rules.
func ParseDisasterType(s string) (DisasterType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range AllDisasterTypes() {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// DisplayType title-cases a type for presentation ("dust storm" -> "Dust Storm").
func DisplayType(t DisasterType) string {
	if t == "" {
		return ""
	}
	return cases.Title(language.English).String(string(t))
}

// TypeRule maps any of its keywords (matched as substrings of the lower-cased
// source type) to Type.
type TypeRule struct {
	Type     DisasterType
	Keywords []string
}

// TypeTable is an ordered synonym table. The first rule with a matching
// keyword wins, so specific phrases ("dust storm") must precede generic ones
// ("storm").
type TypeTable []TypeRule

// DefaultTypeTable returns a fresh copy of the built-in synonym table.
func DefaultTypeTable() TypeTable {
	return TypeTable{
		{TypeFlood, []string{"flood", "inundat", "deluge"}},
		{TypeFire, []string{"wildfire", "bushfire", "forest fire", "fire", "blaze"}},
		{TypeEarthquake, []string{"earthquake", "quake", "seismic", "tremor", "aftershock"}},
		{TypeTsunami, []string{"tsunami", "tidal wave"}},
		{TypeVolcano, []string{"volcan", "eruption", "lava", "ashfall"}},
		{TypeLandslide, []string{"landslide", "mudslide", "rockslide", "avalanche", "debris flow"}},
		{TypeDustStorm, []string{"dust storm", "sandstorm", "sand storm", "haboob"}},
		{TypeBlizzard, []string{"blizzard", "snowstorm", "snow storm", "winter storm", "ice storm", "snow"}},
		{TypeLightning, []string{"lightning", "thunderstorm", "thunder"}},
		{TypeTornado, []string{"tornado", "twister", "waterspout"}},
		{TypeHurricane, []string{"hurricane", "cyclone", "typhoon", "tropical storm", "storm"}},
		{TypeDrought, []string{"drought", "dry spell", "water shortage"}},
		{TypeHeatwave, []string{"heatwave", "heat wave", "extreme heat", "heat"}},
		{TypeColdWave, []string{"cold wave", "coldwave", "cold snap", "freeze", "frost", "cold"}},
	}
}

// Classify maps a free-text type onto the closed set. Blank and sentinel
// values ("None", "Not Specified") yield the empty type; anything else that
// matches no rule is TypeOther.
func (t TypeTable) Classify(raw string) DisasterType {
	s := strings.ToLower(strings.TrimSpace(raw))
	if isSentinel(s) {
		return ""
	}
	for _, rule := range t {
		for _, kw := range rule.Keywords {
			if strings.Contains(s, kw) {
				return rule.Type
			}
		}
	}
	return TypeOther
}
