package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/researchaccelerator-hub/yt-analytics-report/client"
	"github.com/researchaccelerator-hub/yt-analytics-report/common"
	"github.com/researchaccelerator-hub/yt-analytics-report/config"
	"github.com/researchaccelerator-hub/yt-analytics-report/report"
	"github.com/researchaccelerator-hub/yt-analytics-report/sink"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// envFile is loaded into the environment before configuration is resolved.
const envFile = ".env"

// uploaderFactory creates the uploader for the configured storage backend
type uploaderFactory func(ctx context.Context, cfg config.StorageConfig) (sink.Uploader, error)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Fatal().Err(err).Msg("YouTube analytics report failed")
	}
}

func newRootCommand() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "yt-analytics-report",
		Short: "Export YouTube Analytics retention metrics for a video to object storage",
		Long: `Queries the YouTube Analytics API for the audience retention metrics of one
video over a date range, writes them to a timestamped CSV file and uploads
that file to the configured bucket.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v, time.Now())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			_, err = run(ctx, cfg, client.NewDefaultClientFactory(cfg.Transport), sink.NewUploader)
			return err
		},
	}

	registerFlags(cmd.Flags())
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		log.Fatal().Err(err).Msg("Failed to bind command line flags")
	}
	return cmd
}

// registerFlags declares every command line flag. Flag names double as config keys.
func registerFlags(flags *pflag.FlagSet) {
	defaults := config.DefaultReportConfig(time.Now())

	flags.String(config.KeyConfig, "", "Optional config file (yaml, json or toml)")
	flags.String(config.KeyStartDate, config.DefaultStartDate, "First day of the report (YYYY-MM-DD)")
	flags.String(config.KeyEndDate, "", "Last day of the report (YYYY-MM-DD), defaults to today")

	flags.String(config.KeyVideoID, defaults.VideoID, "Video the report is filtered to")
	flags.StringSlice(config.KeyMetrics, defaults.Metrics, "Comma separated metrics, in output order")

	flags.String(config.KeyOutputDir, defaults.OutputDir, "Directory the report file is written to")
	flags.Bool(config.KeyIncludeIndex, defaults.IncludeIndex, "Write a leading row index column")
	flags.Bool(config.KeyKeepLocal, defaults.KeepLocal, "Keep the local report file after a successful upload")

	flags.String(config.KeyStorageBackend, defaults.Storage.Backend, "Upload backend: s3, gcs or ftp")
	flags.String(config.KeyBucket, defaults.Storage.Bucket, "Destination bucket (remote directory for ftp)")
	flags.String(config.KeyKeyPrefix, defaults.Storage.KeyPrefix, "Object key prefix")
	flags.String(config.KeyRegion, "", "AWS region, defaults to the SDK credential chain")
	flags.String(config.KeyS3Endpoint, "", "Custom S3 compatible endpoint")
	flags.String(config.KeyFTPHost, "", "FTP server host")
	flags.Int(config.KeyFTPPort, defaults.Storage.FTP.Port, "FTP server port")
	flags.String(config.KeyFTPUser, "", "FTP user")
	flags.String(config.KeyFTPPassword, "", "FTP password")

	flags.String(config.KeyClientSecrets, defaults.Auth.ClientSecretsFile, "OAuth client secrets file")
	flags.String(config.KeyTokenFile, defaults.Auth.TokenFile, "Stored OAuth credentials file")
	flags.Bool(config.KeyNoLocalWebserver, false, "Paste the authorization code instead of running a local webserver")
	flags.String(config.KeyAuthHostName, defaults.Auth.HostName, "Hostname of the local consent webserver")
	flags.IntSlice(config.KeyAuthHostPort, defaults.Auth.HostPorts, "Ports tried, in order, for the local consent webserver")

	flags.Bool(config.KeyInsecureTLS, false, "Skip TLS certificate verification for Google API calls")
	flags.Duration(config.KeyHTTPTimeout, defaults.Transport.Timeout, "Timeout of each Google API request")

	flags.String(config.KeyLoggingLevel, defaults.LogLevel, "Logging level (trace, debug, info, warn, error)")
	flags.Bool(config.KeyLogConsole, false, "Human readable console logs instead of JSON")
}

// loadConfig resolves the configuration from flags, environment, .env and the
// optional config file, then configures logging.
func loadConfig(v *viper.Viper, now time.Time) (*config.ReportConfig, error) {
	if err := config.BindEnvironment(v, envFile); err != nil {
		return nil, err
	}
	if err := config.ReadConfigFile(v, v.GetString(config.KeyConfig)); err != nil {
		return nil, err
	}

	cfg, err := config.Load(v, now)
	if err != nil {
		return nil, err
	}

	if err := common.SetupLogging(cfg.LogLevel, cfg.LogConsole); err != nil {
		return nil, err
	}
	common.AttachRunID(cfg.RunID)
	return cfg, nil
}

// run builds every stage for cfg and executes the report once.
func run(ctx context.Context, cfg *config.ReportConfig, factory client.ClientFactory, newUploader uploaderFactory) (*sink.Artifact, error) {
	auth, err := factory.CreateAuthenticator(cfg)
	if err != nil {
		return nil, err
	}

	analytics, err := factory.CreateClient(common.PlatformYouTube, cfg)
	if err != nil {
		return nil, err
	}

	uploader, err := newUploader(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	if closer, ok := uploader.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				log.Warn().Err(err).Msg("Error closing uploader")
			}
		}()
	}

	return report.NewRunner(auth, analytics, sink.New(uploader, cfg), cfg).Run(ctx)
}
