package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/researchaccelerator-hub/yt-analytics-report/common"
	"github.com/researchaccelerator-hub/yt-analytics-report/config"
	"github.com/researchaccelerator-hub/yt-analytics-report/model"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/youtubeanalytics/v2"
)

// YouTubeAnalyticsClient implements the youtube.AnalyticsClient interface for the YouTube Analytics API v2
type YouTubeAnalyticsClient struct {
	service    *youtubeanalytics.Service
	httpClient *http.Client
	endpoint   string
}

// NewYouTubeAnalyticsClient creates a new analytics client. httpClient supplies the
// transport and timeout; endpoint overrides the API base URL when not empty.
func NewYouTubeAnalyticsClient(httpClient *http.Client, endpoint string) *YouTubeAnalyticsClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &YouTubeAnalyticsClient{
		httpClient: httpClient,
		endpoint:   endpoint,
	}
}

// Connect builds the analytics service with credentials from ts
func (c *YouTubeAnalyticsClient) Connect(ctx context.Context, ts oauth2.TokenSource) error {
	log.Info().Msg("Connecting to YouTube Analytics API")

	authorized := &http.Client{
		Transport: &oauth2.Transport{Source: ts, Base: c.httpClient.Transport},
		Timeout:   c.httpClient.Timeout,
	}

	opts := []option.ClientOption{option.WithHTTPClient(authorized)}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}

	service, err := youtubeanalytics.NewService(ctx, opts...)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create YouTube Analytics service")
		return fmt.Errorf("%w: failed to create YouTube Analytics service: %v", common.ErrAuthentication, err)
	}

	c.service = service
	log.Info().Msg("Connected to YouTube Analytics API successfully")
	return nil
}

// Disconnect releases the service handle
func (c *YouTubeAnalyticsClient) Disconnect(ctx context.Context) error {
	// No explicit disconnect needed for the YouTube Analytics API client
	c.service = nil
	return nil
}

// QueryReport runs a single reports.query call and validates the response shape.
func (c *YouTubeAnalyticsClient) QueryReport(ctx context.Context, query model.ReportQuery) (*model.Report, error) {
	if c.service == nil {
		return nil, fmt.Errorf("%w: YouTube Analytics client not connected", common.ErrRemoteQuery)
	}

	log.Info().
		Str("ids", query.IDs).
		Str("start_date", query.StartDate.Format(config.DateLayout)).
		Str("end_date", query.EndDate.Format(config.DateLayout)).
		Str("metrics", query.MetricList()).
		Str("filters", query.Filters).
		Msg("Querying YouTube Analytics report")

	call := c.service.Reports.Query().
		Ids(query.IDs).
		StartDate(query.StartDate.Format(config.DateLayout)).
		EndDate(query.EndDate.Format(config.DateLayout)).
		Metrics(query.MetricList())

	if query.Dimensions != "" {
		call = call.Dimensions(query.Dimensions)
	}
	if query.Filters != "" {
		call = call.Filters(query.Filters)
	}

	response, err := call.Context(ctx).Do()
	if err != nil {
		log.Error().Err(err).Msg("Failed to query YouTube Analytics report")
		return nil, fmt.Errorf("%w: %w", common.ErrRemoteQuery, err)
	}

	headers := make([]string, 0, len(response.ColumnHeaders))
	for _, h := range response.ColumnHeaders {
		if h != nil {
			headers = append(headers, h.Name)
		}
	}

	report, err := model.NewReport(query.Metrics, headers, response.Rows)
	if err != nil {
		log.Error().Err(err).Strs("column_headers", headers).Msg("Unexpected YouTube Analytics response")
		return nil, err
	}

	if len(report.Rows) == 0 {
		log.Warn().Msg("YouTube Analytics returned no rows for the requested range")
	}

	log.Info().Int("row_count", len(report.Rows)).Msg("YouTube Analytics report retrieved")
	return report, nil
}
