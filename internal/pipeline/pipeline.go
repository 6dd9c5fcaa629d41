package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/couchcryptid/crisis-dashboard/internal/domain"
	"github.com/couchcryptid/crisis-dashboard/internal/observability"
)

// ErrNoSnapshot is returned by a SnapshotCache that holds no record set.
var ErrNoSnapshot = errors.New("no snapshot cached")

// postsTable is the change feed table that invalidates the snapshot.
const postsTable = "disaster_posts"

// changeBatchSize caps the events handled per Watch cycle.
const changeBatchSize = 100

// refreshTimeout bounds one snapshot fetch.
const refreshTimeout = 30 * time.Second

// RecordSource reads classified posts from the data source, newest first.
type RecordSource interface {
	SelectRecords(ctx context.Context, q domain.RecordQuery) ([]domain.RawRecord, error)
}

// SnapshotCache holds the last-fetched raw record set. Load returns
// ErrNoSnapshot when nothing is cached.
type SnapshotCache interface {
	Load(ctx context.Context) ([]domain.RawRecord, error)
	Store(ctx context.Context, records []domain.RawRecord) error
}

// ChangeFeed delivers row changes announced by the data source.
type ChangeFeed interface {
	FetchChanges(ctx context.Context, max int) ([]domain.ChangeEvent, error)
}

// HelpStatsSource provides the responder counters for the summary view.
type HelpStatsSource interface {
	Stats(ctx context.Context) (domain.HelpStats, error)
}

// Options configures a Pipeline.
type Options struct {
	View         domain.ViewOptions
	FetchLimit   int
	GeocodeLimit int
	Normalizer   *domain.Normalizer // nil selects the default type table
	Geocoder     domain.Geocoder    // nil disables coordinate enrichment
}

// Pipeline fetches classified posts into a snapshot and derives the dashboard
// views from it on demand. Every view is recomputed from the full snapshot.
type Pipeline struct {
	source     RecordSource
	cache      SnapshotCache
	normalizer *domain.Normalizer
	geocoder   domain.Geocoder
	opts       Options
	logger     *slog.Logger
	metrics    *observability.Metrics
	ready      atomic.Bool
	refreshes  singleflight.Group
}

// New creates a Pipeline reading from source and caching in cache.
func New(source RecordSource, cache SnapshotCache, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	normalizer := opts.Normalizer
	if normalizer == nil {
		normalizer = domain.NewNormalizer(nil)
	}
	return &Pipeline{
		source:     source,
		cache:      cache,
		normalizer: normalizer,
		geocoder:   opts.Geocoder,
		opts:       opts,
		logger:     logger,
		metrics:    metrics,
	}
}

// CheckReadiness returns nil once a snapshot has been fetched, or an error
// describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no record snapshot has been fetched yet")
	}
	return nil
}

// Refresh fetches the latest records and replaces the cached snapshot.
// Concurrent calls share one fetch.
func (p *Pipeline) Refresh(ctx context.Context) error {
	_, err := p.sharedRefresh(ctx)
	return err
}

// sharedRefresh joins the in-flight fetch or starts one. The fetch is detached
// from ctx so one caller leaving does not fail the others; a caller whose ctx
// ends stops waiting and gets ctx.Err().
func (p *Pipeline) sharedRefresh(ctx context.Context) ([]domain.RawRecord, error) {
	ch := p.refreshes.DoChan("refresh", func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return p.refresh(fetchCtx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]domain.RawRecord), nil
	}
}

func (p *Pipeline) refresh(ctx context.Context) ([]domain.RawRecord, error) {
	start := time.Now()

	raws, err := p.source.SelectRecords(ctx, domain.RecordQuery{Limit: p.opts.FetchLimit})
	if err != nil {
		p.metrics.SourceErrors.Inc()
		return nil, fmt.Errorf("select records: %w", err)
	}
	if err := p.cache.Store(ctx, raws); err != nil {
		return nil, fmt.Errorf("store snapshot: %w", err)
	}

	p.metrics.RecordsFetched.Add(float64(len(raws)))
	p.metrics.SnapshotRecords.Set(float64(len(raws)))
	p.metrics.RefreshDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	p.logger.Info("snapshot refreshed", "records", len(raws), "duration", time.Since(start))
	return raws, nil
}

// Records returns the normalized snapshot, fetching it first when the cache
// is empty or expired. Records without coordinates are geocoded when a
// geocoder is configured.
func (p *Pipeline) Records(ctx context.Context) ([]domain.NormalizedRecord, error) {
	raws, err := p.cache.Load(ctx)
	switch {
	case errors.Is(err, ErrNoSnapshot):
		raws, err = p.sharedRefresh(ctx)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	records := p.normalizer.NormalizeAll(raws)
	if rejected := len(raws) - len(records); rejected > 0 {
		p.metrics.RecordsRejected.Add(float64(rejected))
	}

	if p.geocoder != nil {
		var outcome domain.GeocodeOutcome
		records, outcome = domain.EnrichCoordinates(ctx, records, p.geocoder, p.opts.GeocodeLimit, p.logger)
		if outcome.Resolved+outcome.Failed+outcome.Skipped > 0 {
			p.logger.Debug("coordinate enrichment",
				"resolved", outcome.Resolved,
				"empty", outcome.Empty,
				"failed", outcome.Failed,
				"skipped", outcome.Skipped,
			)
		}
	}
	return records, nil
}

// Dashboard derives every view for q from the snapshot.
func (p *Pipeline) Dashboard(ctx context.Context, q domain.DashboardQuery) (domain.Dashboard, error) {
	records, err := p.Records(ctx)
	if err != nil {
		return domain.Dashboard{}, err
	}
	start := time.Now()
	d := domain.BuildDashboard(records, q, p.opts.View)
	p.metrics.ViewBuildDuration.Observe(time.Since(start).Seconds())
	return d, nil
}

// Summary is the landing page document: every view plus the responder counters.
type Summary struct {
	domain.Dashboard
	HelpRequests domain.HelpStats `json:"help_requests"`
}

// Summary builds the dashboard and reads the help request counters
// concurrently. Either failure fails the whole summary.
func (p *Pipeline) Summary(ctx context.Context, q domain.DashboardQuery, help HelpStatsSource) (Summary, error) {
	var s Summary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := p.Dashboard(gctx, q)
		if err != nil {
			return err
		}
		s.Dashboard = d
		return nil
	})
	g.Go(func() error {
		stats, err := help.Stats(gctx)
		if err != nil {
			return fmt.Errorf("help request stats: %w", err)
		}
		s.HelpRequests = stats
		return nil
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return s, nil
}

// Watch consumes the change feed until the context is cancelled. Any change
// to the posts table triggers a full refresh; events are committed only after
// the refresh succeeded.
func (p *Pipeline) Watch(ctx context.Context, feed ChangeFeed) error {
	p.logger.Info("change feed watcher started")
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := initialBackoff

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("change feed watcher stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processChanges(ctx, feed, &backoff) {
			return nil
		}
	}
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// processChanges runs one fetch-refresh-commit cycle. Returns false if the
// watcher should stop.
func (p *Pipeline) processChanges(ctx context.Context, feed ChangeFeed, backoff *time.Duration) bool {
	events, err := feed.FetchChanges(ctx, changeBatchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.metrics.SourceErrors.Inc()
		p.logger.Error("fetch changes failed", "error", err)
		return backoffOrStop(ctx, backoff)
	}
	if len(events) == 0 {
		return ctx.Err() == nil
	}

	stale := false
	for _, ev := range events {
		p.metrics.ChangeEvents.WithLabelValues(ev.Op).Inc()
		if ev.Table == postsTable {
			stale = true
		}
	}

	if stale {
		if err := p.Refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return false
			}
			p.logger.Error("refresh after change failed", "error", err, "events", len(events))
			return backoffOrStop(ctx, backoff)
		}
	}
	*backoff = initialBackoff

	for _, ev := range events {
		p.commit(ctx, ev)
	}
	return true
}

// commit acknowledges the event if a commit function is available.
func (p *Pipeline) commit(ctx context.Context, ev domain.ChangeEvent) {
	if ev.Commit == nil {
		return
	}
	if err := ev.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", ev.Topic, "partition", ev.Partition, "offset", ev.Offset)
	}
}

// backoffOrStop sleeps with the current backoff and advances it. Returns
// false if the context was cancelled.
func backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

func nextBackoff(current, limit time.Duration) time.Duration {
	next := current * 2
	if next > limit {
		return limit
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
