// Package youtube contains YouTube Analytics specific definitions
package youtube

import (
	"context"

	"github.com/researchaccelerator-hub/yt-analytics-report/model"
	"golang.org/x/oauth2"
	"google.golang.org/api/youtubeanalytics/v2"
)

const (
	// ServiceName and ServiceVersion identify the analytics API the client is bound to.
	ServiceName    = "youtubeAnalytics"
	ServiceVersion = "v2"

	// ReadonlyScope is the only OAuth scope the job requests.
	ReadonlyScope = youtubeanalytics.YtAnalyticsReadonlyScope
)

// AnalyticsClient defines the methods needed for YouTube Analytics API operations
type AnalyticsClient interface {
	// Connect binds the client to the given credentials
	Connect(ctx context.Context, ts oauth2.TokenSource) error

	// Disconnect releases the service handle
	Disconnect(ctx context.Context) error

	// QueryReport issues exactly one reports.query call
	QueryReport(ctx context.Context, query model.ReportQuery) (*model.Report, error)
}
