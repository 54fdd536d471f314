package common

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// TimestampLayout is the layout used to stamp generated report files.
const TimestampLayout = "20060102150405"

// GenerateTimestamp formats t in the "YYYYMMDDHHMMSS" layout used for report file names.
func GenerateTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// GenerateRunID returns a unique identifier for one invocation of the job.
// It is attached to every log line so scheduled runs can be told apart.
func GenerateRunID() string {
	return uuid.New().String()
}

// SetupLogging configures the global zerolog logger. An empty level means info.
// When console is true the human readable console writer is used instead of JSON.
func SetupLogging(level string, console bool) error {
	lvl := zerolog.InfoLevel
	if strings.TrimSpace(level) != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
		if err != nil {
			return fmt.Errorf("%w: invalid logging level %q", ErrArgumentFormat, level)
		}
		lvl = parsed
	}

	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if console {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	return nil
}

// AttachRunID adds the run_id field to every line written by the global logger.
func AttachRunID(runID string) {
	log.Logger = log.With().Str("run_id", runID).Logger()
}

// PlatformType defines the analytics platforms a report can be fetched from
type PlatformType string

const (
	// PlatformYouTube represents the YouTube Analytics API
	PlatformYouTube PlatformType = "youtube"
)
