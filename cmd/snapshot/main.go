// Command snapshot builds the dashboard views from an exported JSON array of
// disaster_posts rows and prints them as JSON. It runs the same normalization
// and view code as the service, so an export can be replayed offline.
//
// Usage:
//
//	go run ./cmd/snapshot -in posts.json -types flood,fire -page 1 > dashboard.json
//	cat posts.json | go run ./cmd/snapshot -cluster fuzzy -tiers 4
//
// With -geocode, rows missing coordinates are resolved through Mapbox using
// MAPBOX_TOKEN.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/crisis-dashboard/internal/adapter/mapbox"
	"github.com/couchcryptid/crisis-dashboard/internal/domain"
	"github.com/couchcryptid/crisis-dashboard/internal/observability"
)

type options struct {
	query    domain.DashboardQuery
	view     domain.ViewOptions
	geocoder domain.Geocoder
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("snapshot", flag.ContinueOnError)
	in := fs.String("in", "-", "input JSON file of raw records, - for stdin")
	types := fs.String("types", "", "comma-separated disaster types for trends and breakdown")
	from := fs.String("from", "", "first trend date, YYYY-MM-DD")
	to := fs.String("to", "", "last trend date, YYYY-MM-DD")
	minSeverity := fs.Float64("min-severity", 0, "minimum severity for trends and breakdown")
	page := fs.Int("page", 0, "0-based trend page")
	cluster := fs.String("cluster", "exact", "cluster strategy: exact or fuzzy")
	tiers := fs.String("tiers", "3", "severity tier table: 3 or 4")
	genuine := fs.String("genuine", "strict", "genuine policy: strict, assume or ignore")
	topN := fs.Int("top", 10, "ranked records to keep")
	tz := fs.String("tz", "UTC", "time zone for calendar dates")
	geocode := fs.Bool("geocode", false, "forward-geocode rows missing coordinates (needs MAPBOX_TOKEN)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts, err := parseOptions(*types, *from, *to, *minSeverity, *page, *cluster, *tiers, *genuine, *topN, *tz)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	if *geocode {
		token := os.Getenv("MAPBOX_TOKEN")
		if token == "" {
			return fmt.Errorf("-geocode requires MAPBOX_TOKEN")
		}
		metrics := observability.NewMetricsForTesting()
		opts.geocoder = mapbox.NewCachedGeocoder(mapbox.NewClient(token, 10*time.Second, metrics, logger), 1000, metrics)
	}

	r := stdin
	if *in != "-" {
		f, err := os.Open(*in)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	d, err := buildSnapshot(context.Background(), r, opts, logger)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

func parseOptions(types, from, to string, minSeverity float64, page int, cluster, tiers, genuine string, topN int, tz string) (options, error) {
	var opts options

	for _, name := range strings.Split(types, ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		t, ok := domain.ParseDisasterType(name)
		if !ok {
			return opts, fmt.Errorf("unknown disaster type %q", name)
		}
		opts.query.Types = append(opts.query.Types, t)
	}
	for _, d := range []struct {
		value string
		dst   *time.Time
	}{{from, &opts.query.From}, {to, &opts.query.To}} {
		if d.value == "" {
			continue
		}
		t, err := time.Parse(time.DateOnly, d.value)
		if err != nil {
			return opts, fmt.Errorf("invalid date %q: %w", d.value, err)
		}
		*d.dst = t
	}
	if page < 0 {
		return opts, fmt.Errorf("page must not be negative")
	}
	opts.query.Page = page
	opts.query.MinSeverity = minSeverity

	strategy, err := domain.ParseClusterStrategy(cluster)
	if err != nil {
		return opts, err
	}
	table, err := domain.ParseTierTable(tiers)
	if err != nil {
		return opts, err
	}
	policy, err := domain.ParseGenuinePolicy(genuine)
	if err != nil {
		return opts, err
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return opts, fmt.Errorf("invalid time zone %q: %w", tz, err)
	}
	opts.view = domain.ViewOptions{
		Strategy: strategy,
		Tiers:    table,
		Genuine:  policy,
		TopN:     topN,
		PageSize: domain.DefaultPageSize,
		Location: loc,
	}
	return opts, nil
}

// buildSnapshot decodes raw records from r and derives every dashboard view.
func buildSnapshot(ctx context.Context, r io.Reader, opts options, logger *slog.Logger) (domain.Dashboard, error) {
	var raws []domain.RawRecord
	if err := json.NewDecoder(r).Decode(&raws); err != nil {
		return domain.Dashboard{}, fmt.Errorf("decode records: %w", err)
	}

	records := domain.NewNormalizer(nil).NormalizeAll(raws)
	if rejected := len(raws) - len(records); rejected > 0 {
		logger.Warn("rejected empty records", "count", rejected)
	}
	if opts.geocoder != nil {
		var outcome domain.GeocodeOutcome
		records, outcome = domain.EnrichCoordinates(ctx, records, opts.geocoder, 0, logger)
		logger.Info("geocoded records", "resolved", outcome.Resolved, "failed", outcome.Failed)
	}

	return domain.BuildDashboard(records, opts.query, opts.view), nil
}
