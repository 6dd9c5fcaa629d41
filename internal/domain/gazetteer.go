package domain

// Country lists the spellings that refer to one country. Code is the short
// form users type (usually ISO 3166 alpha-2).
type Country struct {
	Code  string
	Names []string
}

// Gazetteer is the read-only place-name data used to expand location text.
// All entries are lower-case.
type Gazetteer struct {
	// States maps US state abbreviations to full names.
	States map[string]string
	// Countries lists country codes with their name variants.
	Countries []Country
	// USReferences are the phrases that mark a location as being in the
	// United States and activate state-priority matching.
	USReferences []string
}

// DefaultGazetteer returns a fresh copy of the built-in place data.
func DefaultGazetteer() Gazetteer {
	return Gazetteer{
		States: map[string]string{
			"al": "alabama", "ak": "alaska", "az": "arizona", "ar": "arkansas",
			"ca": "california", "co": "colorado", "ct": "connecticut", "de": "delaware",
			"dc": "district of columbia", "fl": "florida", "ga": "georgia", "hi": "hawaii",
			"id": "idaho", "il": "illinois", "in": "indiana", "ia": "iowa",
			"ks": "kansas", "ky": "kentucky", "la": "louisiana", "me": "maine",
			"md": "maryland", "ma": "massachusetts", "mi": "michigan", "mn": "minnesota",
			"ms": "mississippi", "mo": "missouri", "mt": "montana", "ne": "nebraska",
			"nv": "nevada", "nh": "new hampshire", "nj": "new jersey", "nm": "new mexico",
			"ny": "new york", "nc": "north carolina", "nd": "north dakota", "oh": "ohio",
			"ok": "oklahoma", "or": "oregon", "pa": "pennsylvania", "ri": "rhode island",
			"sc": "south carolina", "sd": "south dakota", "tn": "tennessee", "tx": "texas",
			"ut": "utah", "vt": "vermont", "va": "virginia", "wa": "washington",
			"wv": "west virginia", "wi": "wisconsin", "wy": "wyoming", "pr": "puerto rico",
		},
		Countries: []Country{
			{Code: "us", Names: []string{"usa", "united states", "united states of america", "america"}},
			{Code: "uk", Names: []string{"gb", "united kingdom", "great britain", "britain", "england"}},
			{Code: "ca", Names: []string{"canada"}},
			{Code: "mx", Names: []string{"mexico"}},
			{Code: "au", Names: []string{"australia"}},
			{Code: "nz", Names: []string{"new zealand"}},
			{Code: "in", Names: []string{"india"}},
			{Code: "pk", Names: []string{"pakistan"}},
			{Code: "bd", Names: []string{"bangladesh"}},
			{Code: "np", Names: []string{"nepal"}},
			{Code: "cn", Names: []string{"china"}},
			{Code: "jp", Names: []string{"japan"}},
			{Code: "ph", Names: []string{"philippines"}},
			{Code: "id", Names: []string{"indonesia"}},
			{Code: "tr", Names: []string{"turkey", "turkiye"}},
			{Code: "it", Names: []string{"italy"}},
			{Code: "gr", Names: []string{"greece"}},
			{Code: "es", Names: []string{"spain"}},
			{Code: "fr", Names: []string{"france"}},
			{Code: "de", Names: []string{"germany"}},
			{Code: "br", Names: []string{"brazil"}},
			{Code: "cl", Names: []string{"chile"}},
			{Code: "ht", Names: []string{"haiti"}},
		},
		USReferences: []string{"usa", "us", "america", "united states"},
	}
}
