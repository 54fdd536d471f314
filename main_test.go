package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/researchaccelerator-hub/yt-analytics-report/client"
	"github.com/researchaccelerator-hub/yt-analytics-report/common"
	"github.com/researchaccelerator-hub/yt-analytics-report/config"
	"github.com/researchaccelerator-hub/yt-analytics-report/model"
	"github.com/researchaccelerator-hub/yt-analytics-report/model/youtube"
	"github.com/researchaccelerator-hub/yt-analytics-report/sink"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type staticAuthenticator struct {
	calls int
}

func (a *staticAuthenticator) Authenticate(ctx context.Context) (oauth2.TokenSource, error) {
	a.calls++
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "token"}), nil
}

type fakeAnalyticsClient struct {
	rows    [][]interface{}
	queries []model.ReportQuery
}

func (c *fakeAnalyticsClient) Connect(ctx context.Context, ts oauth2.TokenSource) error { return nil }

func (c *fakeAnalyticsClient) Disconnect(ctx context.Context) error { return nil }

func (c *fakeAnalyticsClient) QueryReport(ctx context.Context, query model.ReportQuery) (*model.Report, error) {
	c.queries = append(c.queries, query)
	return model.NewReport(query.Metrics, nil, c.rows)
}

type fakeFactory struct {
	auth      client.Authenticator
	analytics youtube.AnalyticsClient
	authErr   error
}

func (f *fakeFactory) CreateAuthenticator(cfg *config.ReportConfig) (client.Authenticator, error) {
	if f.authErr != nil {
		return nil, f.authErr
	}
	return f.auth, nil
}

func (f *fakeFactory) CreateClient(platform common.PlatformType, cfg *config.ReportConfig) (youtube.AnalyticsClient, error) {
	return f.analytics, nil
}

// MockUploader mocks sink.Uploader
type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) Upload(ctx context.Context, localPath, bucket, key string) error {
	return m.Called(ctx, localPath, bucket, key).Error(0)
}

// closingUploader records whether run released it
type closingUploader struct {
	MockUploader
	closed bool
}

func (u *closingUploader) Close() error {
	u.closed = true
	return nil
}

func parseFlags(t *testing.T, args ...string) *viper.Viper {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	registerFlags(flags)
	require.NoError(t, flags.Parse(args))

	v := viper.New()
	require.NoError(t, v.BindPFlags(flags))
	return v
}

func TestRegisterFlags(t *testing.T) {
	cmd := newRootCommand()
	for _, name := range []string{
		config.KeyConfig, config.KeyStartDate, config.KeyEndDate, config.KeyClientSecrets,
		config.KeyTokenFile, config.KeyVideoID, config.KeyMetrics, config.KeyOutputDir,
		config.KeyIncludeIndex, config.KeyKeepLocal, config.KeyStorageBackend, config.KeyBucket,
		config.KeyKeyPrefix, config.KeyRegion, config.KeyS3Endpoint, config.KeyFTPHost,
		config.KeyFTPPort, config.KeyFTPUser, config.KeyFTPPassword, config.KeyNoLocalWebserver,
		config.KeyAuthHostName, config.KeyAuthHostPort, config.KeyInsecureTLS, config.KeyHTTPTimeout,
		config.KeyLoggingLevel, config.KeyLogConsole,
	} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "flag %s", name)
	}
	assert.Equal(t, "yt-analytics-report", cmd.Use)
}

func TestLoadConfigDefaults(t *testing.T) {
	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	cfg, err := loadConfig(parseFlags(t), now)
	require.NoError(t, err)

	assert.Equal(t, "2010-01-01", cfg.StartDate.Format(config.DateLayout))
	assert.Equal(t, "2024-03-09", cfg.EndDate.Format(config.DateLayout))
	assert.Equal(t, config.DefaultMetrics, cfg.Metrics)
	assert.Equal(t, []int{8080, 8090}, cfg.Auth.HostPorts)
	assert.Equal(t, 60*time.Second, cfg.Transport.Timeout)
	assert.Equal(t, "teamanalytics", cfg.Storage.Bucket)
}

func TestLoadConfigTagsLogsWithRunID(t *testing.T) {
	previous := log.Logger
	defer func() { log.Logger = previous }()

	cfg, err := loadConfig(parseFlags(t), time.Now())
	require.NoError(t, err)

	var buf bytes.Buffer
	log.Logger = log.Logger.Output(&buf)
	log.Info().Msg("stage finished")
	assert.Contains(t, buf.String(), `"run_id":"`+cfg.RunID+`"`)
}

func TestLoadConfigFromFlags(t *testing.T) {
	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	v := parseFlags(t,
		"--start_date", "2024-01-01",
		"--end_date", "2024-01-31",
		"--metrics", "views,likes",
		"--storage_backend", "FTP",
		"--ftp_host", "ftp.example.com",
		"--auth_host_port", "9000,9001",
		"--http_timeout", "5s",
		"--noauth_local_webserver",
		"--keep_local=false",
	)

	cfg, err := loadConfig(v, now)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", cfg.StartDate.Format(config.DateLayout))
	assert.Equal(t, "2024-01-31", cfg.EndDate.Format(config.DateLayout))
	assert.Equal(t, []string{"views", "likes"}, cfg.Metrics)
	assert.Equal(t, config.BackendFTP, cfg.Storage.Backend)
	assert.Equal(t, []int{9000, 9001}, cfg.Auth.HostPorts)
	assert.Equal(t, 5*time.Second, cfg.Transport.Timeout)
	assert.True(t, cfg.Auth.NoLocalWebserver)
	assert.False(t, cfg.KeepLocal)
}

func TestRootCommandRejectsBadDates(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"malformed start", []string{"--start_date", "2024-13-01"}},
		{"malformed end", []string{"--end_date", "yesterday"}},
		{"inverted range", []string{"--start_date", "2024-02-01", "--end_date", "2024-01-01"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCommand()
			cmd.SetArgs(tt.args)
			err := cmd.Execute()
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrArgumentFormat))
		})
	}
}

func TestRun(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg := config.DefaultReportConfig(time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC))
	cfg.OutputDir = t.TempDir()

	auth := &staticAuthenticator{}
	analytics := &fakeAnalyticsClient{rows: [][]interface{}{{"Nl5ELeRtrcY", 0.42, 1.05, float64(1000)}}}
	uploader := new(MockUploader)
	uploader.On("Upload", mock.Anything, cfg.LocalPath(), "teamanalytics",
		"analytics_report/marketing/youtube/youtube_reporting_by_video_20240309140507.csv").Return(nil)

	newUploader := func(ctx context.Context, storage config.StorageConfig) (sink.Uploader, error) {
		assert.Equal(t, config.BackendS3, storage.Backend)
		return uploader, nil
	}

	artifact, err := run(context.Background(), cfg, &fakeFactory{auth: auth, analytics: analytics}, newUploader)
	require.NoError(t, err)

	assert.Equal(t, 1, auth.calls)
	require.Len(t, analytics.queries, 1)
	assert.Equal(t, "video==Nl5ELeRtrcY", analytics.queries[0].Filters)

	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, artifact.FileName))
	require.NoError(t, err)
	assert.Equal(t, ",video,audienceWatchRatio,relativeRetentionPerformance,views\n0,Nl5ELeRtrcY,0.42,1.05,1000\n", string(data))
	uploader.AssertExpectations(t)
}

func TestRunStopsOnSetupErrors(t *testing.T) {
	cfg := config.DefaultReportConfig(time.Now())
	cfg.OutputDir = t.TempDir()

	t.Run("authenticator", func(t *testing.T) {
		factory := &fakeFactory{authErr: common.ErrAuthentication}
		_, err := run(context.Background(), cfg, factory, func(context.Context, config.StorageConfig) (sink.Uploader, error) {
			t.Fatal("uploader must not be created")
			return nil, nil
		})
		assert.True(t, errors.Is(err, common.ErrAuthentication))
	})

	t.Run("uploader", func(t *testing.T) {
		auth := &staticAuthenticator{}
		factory := &fakeFactory{auth: auth, analytics: &fakeAnalyticsClient{}}
		_, err := run(context.Background(), cfg, factory, func(context.Context, config.StorageConfig) (sink.Uploader, error) {
			return nil, common.ErrUpload
		})
		assert.True(t, errors.Is(err, common.ErrUpload))
		assert.Zero(t, auth.calls)
	})
}

func TestRunClosesUploader(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg := config.DefaultReportConfig(time.Now())
	cfg.OutputDir = t.TempDir()

	uploader := &closingUploader{}
	uploader.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(common.ErrUpload)

	factory := &fakeFactory{auth: &staticAuthenticator{}, analytics: &fakeAnalyticsClient{}}
	_, err := run(context.Background(), cfg, factory, func(context.Context, config.StorageConfig) (sink.Uploader, error) {
		return uploader, nil
	})
	assert.True(t, errors.Is(err, common.ErrUpload))
	assert.True(t, uploader.closed)
}
