package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/researchaccelerator-hub/yt-analytics-report/common"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by the job, e.g. YTREPORT_BUCKET.
const EnvPrefix = "YTREPORT"

// Keys shared by the command line flags, the environment and the config file.
const (
	KeyConfig           = "config"
	KeyStartDate        = "start_date"
	KeyEndDate          = "end_date"
	KeyClientSecrets    = "client_secrets"
	KeyTokenFile        = "token_file"
	KeyVideoID          = "video_id"
	KeyMetrics          = "metrics"
	KeyOutputDir        = "output_dir"
	KeyIncludeIndex     = "include_index"
	KeyKeepLocal        = "keep_local"
	KeyStorageBackend   = "storage_backend"
	KeyBucket           = "bucket"
	KeyKeyPrefix        = "key_prefix"
	KeyRegion           = "region"
	KeyS3Endpoint       = "s3_endpoint"
	KeyFTPHost          = "ftp_host"
	KeyFTPPort          = "ftp_port"
	KeyFTPUser          = "ftp_user"
	KeyFTPPassword      = "ftp_password"
	KeyNoLocalWebserver = "noauth_local_webserver"
	KeyAuthHostName     = "auth_host_name"
	KeyAuthHostPort     = "auth_host_port"
	KeyInsecureTLS      = "insecure_skip_verify"
	KeyHTTPTimeout      = "http_timeout"
	KeyLoggingLevel     = "logging_level"
	KeyLogConsole       = "log_console"
)

// BindEnvironment loads envFile (if it exists) into the process environment with
// godotenv and makes v resolve every key from YTREPORT_* variables.
// Variables already present in the environment win over the file.
func BindEnvironment(v *viper.Viper, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: failed to load env file %s: %v", common.ErrArgumentFormat, envFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return nil
}

// ReadConfigFile merges an optional YAML/JSON/TOML config file into v.
func ReadConfigFile(v *viper.Viper, file string) error {
	if file == "" {
		return nil
	}
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("%w: failed to read config file %s: %v", common.ErrArgumentFormat, file, err)
	}
	log.Debug().Str("config_file", v.ConfigFileUsed()).Msg("Loaded config file")
	return nil
}

// Load resolves the report configuration. Values explicitly set in v (changed
// flags, environment, config file) override DefaultReportConfig(now).
// The result is validated before it is returned.
func Load(v *viper.Viper, now time.Time) (*ReportConfig, error) {
	cfg := DefaultReportConfig(now)

	if v.IsSet(KeyStartDate) {
		d, err := ParseDate(v.GetString(KeyStartDate))
		if err != nil {
			return nil, err
		}
		cfg.StartDate = d
	}

	if v.IsSet(KeyEndDate) {
		d, err := ParseDate(v.GetString(KeyEndDate))
		if err != nil {
			return nil, err
		}
		cfg.EndDate = d
	}

	setString(v, KeyClientSecrets, &cfg.Auth.ClientSecretsFile)
	setString(v, KeyTokenFile, &cfg.Auth.TokenFile)
	setString(v, KeyVideoID, &cfg.VideoID)
	setString(v, KeyOutputDir, &cfg.OutputDir)
	setString(v, KeyStorageBackend, &cfg.Storage.Backend)
	setString(v, KeyBucket, &cfg.Storage.Bucket)
	setString(v, KeyKeyPrefix, &cfg.Storage.KeyPrefix)
	setString(v, KeyRegion, &cfg.Storage.Region)
	setString(v, KeyS3Endpoint, &cfg.Storage.Endpoint)
	setString(v, KeyFTPHost, &cfg.Storage.FTP.Host)
	setString(v, KeyFTPUser, &cfg.Storage.FTP.Username)
	setString(v, KeyFTPPassword, &cfg.Storage.FTP.Password)
	setString(v, KeyAuthHostName, &cfg.Auth.HostName)
	setString(v, KeyLoggingLevel, &cfg.LogLevel)

	setBool(v, KeyIncludeIndex, &cfg.IncludeIndex)
	setBool(v, KeyKeepLocal, &cfg.KeepLocal)
	setBool(v, KeyNoLocalWebserver, &cfg.Auth.NoLocalWebserver)
	setBool(v, KeyInsecureTLS, &cfg.Transport.InsecureSkipVerify)
	setBool(v, KeyLogConsole, &cfg.LogConsole)

	if v.IsSet(KeyFTPPort) {
		cfg.Storage.FTP.Port = v.GetInt(KeyFTPPort)
	}
	if v.IsSet(KeyAuthHostPort) {
		ports, err := hostPorts(v)
		if err != nil {
			return nil, err
		}
		cfg.Auth.HostPorts = ports
	}
	if v.IsSet(KeyHTTPTimeout) {
		cfg.Transport.Timeout = v.GetDuration(KeyHTTPTimeout)
	}
	if v.IsSet(KeyMetrics) {
		cfg.Metrics = splitList(v.GetStringSlice(KeyMetrics))
	}

	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	cfg.Storage.KeyPrefix = strings.Trim(cfg.Storage.KeyPrefix, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setString(v *viper.Viper, key string, dst *string) {
	if v.IsSet(key) {
		*dst = strings.TrimSpace(v.GetString(key))
	}
}

func setBool(v *viper.Viper, key string, dst *bool) {
	if v.IsSet(key) {
		*dst = v.GetBool(key)
	}
}

// hostPorts reads auth_host_port, which is an []int when it comes from the
// command line and a comma separated string when it comes from the environment.
func hostPorts(v *viper.Viper) ([]int, error) {
	if ports, ok := v.Get(KeyAuthHostPort).([]int); ok {
		for _, port := range ports {
			if port <= 0 || port > 65535 {
				return nil, fmt.Errorf("%w: invalid %s value '%d'", common.ErrArgumentFormat, KeyAuthHostPort, port)
			}
		}
		return ports, nil
	}

	values := splitList(v.GetStringSlice(KeyAuthHostPort))
	ports := make([]int, 0, len(values))
	for _, value := range values {
		port, err := strconv.Atoi(value)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("%w: invalid %s value '%s'", common.ErrArgumentFormat, KeyAuthHostPort, value)
		}
		ports = append(ports, port)
	}
	return ports, nil
}

// splitList flattens values that may themselves be comma separated, as they are
// when a list comes from an environment variable.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
