// Package domain turns classified crisis posts into dashboard views.
//
// # Data Source
//
// Posts are collected from social media and classified upstream by a language
// model into disaster type, severity, genuineness and location. The classifier
// writes one row per post to the disaster_posts table:
//
//	id, tweet, timestamp, genuine_disaster, disaster_type, location,
//	severity_score, latitude, longitude
//
// Rows that the classifier judged not to be genuine disasters carry the
// literal string "None" in disaster_type, location and severity_score.
// Locations the model could not pin down read "Not Specified". Coordinates are
// filled in later by a geocoding pass and may be missing or "None".
//
// # Normalization
//
// [RawRecord] keeps every field loosely typed; [Normalizer] coerces values
// following the table in coerce.go. Nothing in normalization fails: bad values
// become absent values. Disaster types are folded onto a closed set through an
// ordered synonym table ([TypeTable]); the first rule whose keyword appears in
// the source text wins and unmatched text becomes [TypeOther].
//
// Severity scale:
//
//	severity_score = (sum of four 0-10 sub-scores) / 40 * 10, so 0..10.
//
//	Three tiers:  <4 Low | <7 Moderate | >=7 High
//	Four tiers:   <4 Low | <7 Moderate | <9 High | >=9 Critical
//
// Missing severities have no implicit value. Every consumer names its policy
// with [MissingSeverity]: clustering counts them as 0, the severity
// distribution and ranking leave them out.
//
// # Views
//
// [BuildDashboard] derives all views from one normalized record set:
//
//	clusters        ClusterRecords with an exact or fuzzy ClusterStrategy
//	heat layer      HeatPoints, intensity = max severity / 10
//	top locations   TopLocations, summed cluster counts
//	ranking         TopN on the latest calendar date in the data
//	trends          AggregateByDay + PagedSlice (3 days per page)
//	breakdown       TypeBreakdown
//	severity        BuildDistribution
//	KPIs            ComputeKPIs
//
// The ranking window and the KPI 24 hour window are anchored to the newest
// record rather than the wall clock, because classification lags behind real
// time.
//
// # Confidence Scoring
//
// [Scorer] grades a citizen help request Low, Medium or High by looking for
// corroborating posts among the latest genuine records. Location text is
// expanded through a [Gazetteer] (state abbreviations to names, country codes
// to name variants). State names only count as strong evidence when the
// request also names the United States. A failed fetch grades Low.
package domain
