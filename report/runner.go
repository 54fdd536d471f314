// Package report runs the analytics report job: authenticate, query, write and upload.
package report

import (
	"context"
	"time"

	"github.com/researchaccelerator-hub/yt-analytics-report/client"
	"github.com/researchaccelerator-hub/yt-analytics-report/config"
	"github.com/researchaccelerator-hub/yt-analytics-report/model"
	"github.com/researchaccelerator-hub/yt-analytics-report/model/youtube"
	"github.com/researchaccelerator-hub/yt-analytics-report/sink"
	"github.com/rs/zerolog/log"
)

// Deliverer persists a report and returns where it went
type Deliverer interface {
	Deliver(ctx context.Context, report *model.Report) (*sink.Artifact, error)
}

// Runner wires the stages of one run together. Stages run strictly in order
// and the first failure stops the run.
type Runner struct {
	auth   client.Authenticator
	client youtube.AnalyticsClient
	sink   Deliverer
	cfg    *config.ReportConfig
}

// NewRunner creates a runner for cfg
func NewRunner(auth client.Authenticator, analytics youtube.AnalyticsClient, deliverer Deliverer, cfg *config.ReportConfig) *Runner {
	return &Runner{
		auth:   auth,
		client: analytics,
		sink:   deliverer,
		cfg:    cfg,
	}
}

// NewReportQuery builds the single reports.query request of a run.
func NewReportQuery(cfg *config.ReportConfig) model.ReportQuery {
	return model.ReportQuery{
		IDs:        cfg.ChannelIDs,
		StartDate:  cfg.StartDate,
		EndDate:    cfg.EndDate,
		Metrics:    cfg.Metrics,
		Dimensions: config.DefaultDimension,
		Filters:    cfg.Filters(),
	}
}

// Run executes the job once. On an upload failure the returned artifact still
// points at the local file that was written.
func (r *Runner) Run(ctx context.Context) (*sink.Artifact, error) {
	started := time.Now()
	log.Info().
		Str("start_date", r.cfg.StartDate.Format(config.DateLayout)).
		Str("end_date", r.cfg.EndDate.Format(config.DateLayout)).
		Str("video_id", r.cfg.VideoID).
		Msg("Starting YouTube analytics report")

	ts, err := r.auth.Authenticate(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Authentication failed")
		return nil, err
	}

	if err := r.client.Connect(ctx, ts); err != nil {
		return nil, err
	}
	defer func() {
		if err := r.client.Disconnect(ctx); err != nil {
			log.Warn().Err(err).Msg("Error disconnecting analytics client")
		}
	}()

	report, err := r.client.QueryReport(ctx, NewReportQuery(r.cfg))
	if err != nil {
		return nil, err
	}

	artifact, err := r.sink.Deliver(ctx, report)
	if err != nil {
		return artifact, err
	}

	log.Info().
		Str("file", artifact.FileName).
		Str("bucket", artifact.Bucket).
		Str("key", artifact.Key).
		Int("row_count", artifact.RowCount).
		Dur("elapsed", time.Since(started)).
		Msg("YouTube analytics report completed")
	return artifact, nil
}
