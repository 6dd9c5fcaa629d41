// Package helpdesk runs the citizen help request workflow: submissions are
// validated, graded against recent posts, stored as pending and announced to
// responders, who then move them through in-progress to resolved.
package helpdesk

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/crisis-dashboard/internal/domain"
	"github.com/couchcryptid/crisis-dashboard/internal/observability"
)

// Store persists help requests.
type Store interface {
	InsertHelpRequest(ctx context.Context, req domain.HelpRequest) error
	ListHelpRequests(ctx context.Context) ([]domain.HelpRequest, error)
	// UpdateHelpStatus returns domain.ErrNotFound for an unknown id.
	UpdateHelpStatus(ctx context.Context, id string, status domain.HelpStatus) (domain.HelpRequest, error)
}

// Scorer grades a submission against recent posts.
type Scorer interface {
	Score(ctx context.Context, req domain.ScoreRequest) domain.ScoreResult
}

// Publisher announces accepted requests to responders.
type Publisher interface {
	PublishHelpRequest(ctx context.Context, req domain.HelpRequest) error
}

// Desk implements the help request operations.
type Desk struct {
	store     Store
	scorer    Scorer
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Desk. A nil publisher disables notifications.
func New(store Store, scorer Scorer, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics) *Desk {
	return &Desk{
		store:     store,
		scorer:    scorer,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// Submit validates, grades and stores a new request. Notification failures
// are logged and do not fail the submission.
func (d *Desk) Submit(ctx context.Context, sub domain.HelpSubmission) (domain.HelpRequest, error) {
	if err := sub.Validate(); err != nil {
		return domain.HelpRequest{}, err
	}

	result := d.scorer.Score(ctx, sub.ScoreRequest())
	if result.Degraded {
		d.metrics.ConfidenceDegraded.Inc()
	}

	req := domain.NewHelpRequest(sub, result.Confidence)
	if err := d.store.InsertHelpRequest(ctx, req); err != nil {
		return domain.HelpRequest{}, fmt.Errorf("insert help request: %w", err)
	}
	d.metrics.HelpRequests.WithLabelValues(string(req.Confidence)).Inc()
	d.logger.Info("help request accepted",
		"id", req.ID,
		"emergency_type", req.EmergencyType,
		"confidence", req.Confidence,
		"window", result.WindowSize,
	)

	if d.publisher != nil {
		if err := d.publisher.PublishHelpRequest(ctx, req); err != nil {
			d.metrics.PublishErrors.Inc()
			d.logger.Warn("help request notification failed", "id", req.ID, "error", err)
		}
	}
	return req, nil
}

// List returns the stored requests passing f, newest first.
func (d *Desk) List(ctx context.Context, f domain.HelpFilter) ([]domain.HelpRequest, error) {
	reqs, err := d.store.ListHelpRequests(ctx)
	if err != nil {
		return nil, fmt.Errorf("list help requests: %w", err)
	}
	return domain.FilterHelpRequests(reqs, f), nil
}

// UpdateStatus moves a request to status.
func (d *Desk) UpdateStatus(ctx context.Context, id, status string) (domain.HelpRequest, error) {
	s, ok := domain.ParseHelpStatus(status)
	if !ok {
		return domain.HelpRequest{}, &domain.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", status)}
	}
	req, err := d.store.UpdateHelpStatus(ctx, id, s)
	if err != nil {
		return domain.HelpRequest{}, fmt.Errorf("update help request %s: %w", id, err)
	}
	d.logger.Info("help request status changed", "id", id, "status", s)
	return req, nil
}

// Stats counts the stored requests by status.
func (d *Desk) Stats(ctx context.Context) (domain.HelpStats, error) {
	reqs, err := d.store.ListHelpRequests(ctx)
	if err != nil {
		return domain.HelpStats{}, fmt.Errorf("list help requests: %w", err)
	}
	return domain.ComputeHelpStats(reqs), nil
}
