package domain

import "time"

// ViewOptions are the service-wide knobs for building dashboard views.
type ViewOptions struct {
	Strategy ClusterStrategy
	Tiers    TierTable
	Genuine  GenuinePolicy
	TopN     int
	PageSize int
	Location *time.Location
}

// DashboardQuery carries the user's chart filters. They apply to the trend
// and breakdown charts; the map, ranking, severity and KPI views always cover
// the whole record set.
type DashboardQuery struct {
	Types       []DisasterType
	From        time.Time
	To          time.Time
	MinSeverity float64
	Page        int
}

// Dashboard is every derived view for one record set.
type Dashboard struct {
	Clusters     []Cluster          `json:"clusters"`
	Heat         []HeatPoint        `json:"heat"`
	TopLocations []LocationCount    `json:"top_locations"`
	Ranked       []RankedRecord     `json:"ranked"`
	Trends       Page               `json:"trends"`
	Breakdown    []TypeCount        `json:"breakdown"`
	Severity     []TypeDistribution `json:"severity"`
	KPIs         KPIs               `json:"kpis"`
}

// Missing-severity policy per view.
const (
	clusterMissingSeverity      = MissingSeverityAsZero
	distributionMissingSeverity = MissingSeverityExcluded
)

// topLocationCount is the length of the "top affected locations" list.
const topLocationCount = 5

// BuildDashboard derives every view from records. It is a pure function of
// its arguments: the same input always yields the same output.
func BuildDashboard(records []NormalizedRecord, q DashboardQuery, opts ViewOptions) Dashboard {
	tiers := opts.Tiers
	if len(tiers) == 0 {
		tiers = ThreeTier()
	}
	filter := SeriesFilter{
		Types:       q.Types,
		From:        q.From,
		To:          q.To,
		MinSeverity: q.MinSeverity,
		Location:    opts.Location,
	}

	clusters := ClusterRecords(records, opts.Strategy, clusterMissingSeverity)
	return Dashboard{
		Clusters:     clusters,
		Heat:         HeatPoints(clusters),
		TopLocations: TopLocations(clusters, topLocationCount),
		Ranked: TopN(records, opts.Genuine, RankOptions{
			N:        opts.TopN,
			Tiers:    tiers,
			Location: opts.Location,
		}),
		Trends:    PagedSlice(AggregateByDay(records, filter), q.Page, opts.PageSize),
		Breakdown: TypeBreakdown(records, filter),
		Severity:  BuildDistribution(records, tiers, distributionMissingSeverity),
		KPIs:      ComputeKPIs(records, clusters),
	}
}
