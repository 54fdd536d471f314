// Package config provides the configuration structures for the analytics report job
package config

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/researchaccelerator-hub/yt-analytics-report/common"
)

const (
	// DateLayout is the only accepted layout for --start_date and --end_date.
	DateLayout = "2006-01-02"

	// DefaultStartDate is the historical start of the report window.
	DefaultStartDate = "2010-01-01"

	DefaultVideoID     = "Nl5ELeRtrcY"
	DefaultChannelIDs  = "channel==MINE"
	DefaultDimension   = "video"
	DefaultBucket      = "teamanalytics"
	DefaultKeyPrefix   = "analytics_report/marketing/youtube"
	DefaultFilePrefix  = "youtube_reporting_by_video_"
	DefaultTokenFile   = "secrets/youtube_reporting_credentials.json"
	DefaultSecretsFile = "secrets/client_secret.json"

	BackendS3  = "s3"
	BackendGCS = "gcs"
	BackendFTP = "ftp"
)

// DefaultMetrics are the report columns, in output order.
var DefaultMetrics = []string{"audienceWatchRatio", "relativeRetentionPerformance", "views"}

// ReportConfig holds everything one run of the job needs. It is built once at
// process start by Load from the flat keys declared in load.go and handed to every stage.
type ReportConfig struct {
	StartDate time.Time
	EndDate   time.Time

	// StartedAt is the wall-clock time the process started; it names the report file.
	StartedAt time.Time
	RunID     string

	// Query configuration
	ChannelIDs string
	VideoID    string
	Metrics    []string

	// Output configuration
	OutputDir    string
	FilePrefix   string
	IncludeIndex bool // leading unnamed row index column
	KeepLocal    bool // keep the local file after a successful upload

	Auth      AuthConfig
	Storage   StorageConfig
	Transport TransportConfig

	LogLevel   string
	LogConsole bool
}

// AuthConfig configures the credential store and the consent flow
type AuthConfig struct {
	ClientSecretsFile string
	TokenFile         string

	NoLocalWebserver bool
	HostName         string
	HostPorts        []int
}

// StorageConfig selects and configures the upload backend
type StorageConfig struct {
	Backend   string // "s3", "gcs" or "ftp"
	Bucket    string
	KeyPrefix string

	// S3 only
	Region   string
	Endpoint string

	FTP FTPConfig
}

// FTPConfig configures the FTP upload backend. The bucket is used as the remote directory.
type FTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// TransportConfig is applied to the HTTP client used for OAuth and the analytics API only.
type TransportConfig struct {
	InsecureSkipVerify bool
	Timeout            time.Duration
}

// DefaultReportConfig returns a configuration with the job's defaults for a
// process started at now.
func DefaultReportConfig(now time.Time) *ReportConfig {
	start, _ := time.Parse(DateLayout, DefaultStartDate)
	metrics := make([]string, len(DefaultMetrics))
	copy(metrics, DefaultMetrics)

	return &ReportConfig{
		StartDate:    start,
		EndDate:      truncateToDate(now),
		StartedAt:    now,
		RunID:        common.GenerateRunID(),
		ChannelIDs:   DefaultChannelIDs,
		VideoID:      DefaultVideoID,
		Metrics:      metrics,
		OutputDir:    ".",
		FilePrefix:   DefaultFilePrefix,
		IncludeIndex: true,
		KeepLocal:    true,
		Auth: AuthConfig{
			ClientSecretsFile: DefaultSecretsFile,
			TokenFile:         DefaultTokenFile,
			HostName:          "localhost",
			HostPorts:         []int{8080, 8090},
		},
		Storage: StorageConfig{
			Backend:   BackendS3,
			Bucket:    DefaultBucket,
			KeyPrefix: DefaultKeyPrefix,
			FTP:       FTPConfig{Port: 21},
		},
		Transport: TransportConfig{
			Timeout: 60 * time.Second,
		},
		LogLevel: "info",
	}
}

// ParseDate parses a YYYY-MM-DD string into a calendar date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: not a valid date: '%s'", common.ErrArgumentFormat, s)
	}
	return d, nil
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Validate checks if the configuration is valid
func (c *ReportConfig) Validate() error {
	if c.StartDate.IsZero() || c.EndDate.IsZero() {
		return fmt.Errorf("%w: start_date and end_date are required", common.ErrArgumentFormat)
	}

	if c.StartDate.After(c.EndDate) {
		return fmt.Errorf("%w: start_date %s is after end_date %s", common.ErrArgumentFormat,
			c.StartDate.Format(DateLayout), c.EndDate.Format(DateLayout))
	}

	if strings.TrimSpace(c.VideoID) == "" {
		return fmt.Errorf("%w: video_id cannot be empty", common.ErrArgumentFormat)
	}

	if len(c.Metrics) == 0 {
		return fmt.Errorf("%w: at least one metric is required", common.ErrArgumentFormat)
	}
	for _, m := range c.Metrics {
		if strings.TrimSpace(m) == "" || strings.Contains(m, ",") {
			return fmt.Errorf("%w: invalid metric name %q", common.ErrArgumentFormat, m)
		}
	}

	if c.Auth.ClientSecretsFile == "" {
		return fmt.Errorf("%w: client_secrets cannot be empty", common.ErrArgumentFormat)
	}

	if c.Auth.TokenFile == "" {
		return fmt.Errorf("%w: token_file cannot be empty", common.ErrArgumentFormat)
	}

	if !c.Auth.NoLocalWebserver && len(c.Auth.HostPorts) == 0 {
		return fmt.Errorf("%w: auth_host_port needs at least one port for the local webserver flow", common.ErrArgumentFormat)
	}

	if c.Storage.Bucket == "" {
		return fmt.Errorf("%w: bucket cannot be empty", common.ErrArgumentFormat)
	}

	switch c.Storage.Backend {
	case BackendS3, BackendGCS:
	case BackendFTP:
		if c.Storage.FTP.Host == "" {
			return fmt.Errorf("%w: ftp backend requires ftp_host", common.ErrArgumentFormat)
		}
	default:
		return fmt.Errorf("%w: invalid storage_backend '%s', must be one of: s3, gcs, ftp",
			common.ErrArgumentFormat, c.Storage.Backend)
	}

	if c.Transport.Timeout < 0 {
		return fmt.Errorf("%w: http_timeout cannot be negative", common.ErrArgumentFormat)
	}

	return nil
}

// FileName returns the report file name, stamped with the process start time.
func (c *ReportConfig) FileName() string {
	return fmt.Sprintf("%s%s.csv", c.FilePrefix, common.GenerateTimestamp(c.StartedAt))
}

// LocalPath returns where the report file is written before upload.
func (c *ReportConfig) LocalPath() string {
	return filepath.Join(c.OutputDir, c.FileName())
}

// RemoteKey returns the object key the report file is uploaded under.
func (c *ReportConfig) RemoteKey() string {
	return path.Join(c.Storage.KeyPrefix, c.FileName())
}

// Filters returns the analytics filter restricting the report to the configured video.
func (c *ReportConfig) Filters() string {
	return DefaultDimension + "==" + c.VideoID
}
