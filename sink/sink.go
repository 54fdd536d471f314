package sink

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/researchaccelerator-hub/yt-analytics-report/config"
	"github.com/researchaccelerator-hub/yt-analytics-report/model"
	"github.com/rs/zerolog/log"
)

// Sink serializes a report to a local file and uploads that file.
type Sink struct {
	uploader Uploader
	cfg      *config.ReportConfig
}

// New creates a sink writing and uploading according to cfg
func New(uploader Uploader, cfg *config.ReportConfig) *Sink {
	return &Sink{uploader: uploader, cfg: cfg}
}

// Serialize writes the report to the timestamped local file.
func (s *Sink) Serialize(report *model.Report) (*Artifact, error) {
	log.Info().Msg("Start save to csv process")

	artifact := &Artifact{
		LocalPath: s.cfg.LocalPath(),
		FileName:  s.cfg.FileName(),
		Bucket:    s.cfg.Storage.Bucket,
		Key:       s.cfg.RemoteKey(),
		RowCount:  len(report.Rows),
	}

	if err := WriteReportFile(artifact.LocalPath, report, s.cfg.IncludeIndex); err != nil {
		log.Error().Err(err).Str("file", artifact.LocalPath).Msg("Failed to save report")
		return nil, err
	}

	log.Info().Str("file", artifact.LocalPath).Int("row_count", artifact.RowCount).Msg("End save to csv process")
	return artifact, nil
}

// Upload transfers the artifact's local file. A failed upload leaves the local
// file in place.
func (s *Sink) Upload(ctx context.Context, artifact *Artifact) error {
	log.Info().
		Str("backend", s.cfg.Storage.Backend).
		Str("bucket", artifact.Bucket).
		Str("key", artifact.Key).
		Msg("Start upload process")

	if err := s.uploader.Upload(ctx, artifact.LocalPath, artifact.Bucket, artifact.Key); err != nil {
		log.Error().Err(err).Str("file", artifact.LocalPath).Msg("Upload failed, local report file kept")
		return err
	}
	artifact.Uploaded = true

	if !s.cfg.KeepLocal {
		if err := os.Remove(artifact.LocalPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Warn().Err(err).Str("file", artifact.LocalPath).Msg("Failed to remove local report file")
		} else {
			artifact.Removed = true
		}
	}

	log.Info().Str("key", artifact.Key).Bool("local_removed", artifact.Removed).Msg("End upload process")
	return nil
}

// Deliver runs Serialize then Upload.
func (s *Sink) Deliver(ctx context.Context, report *model.Report) (*Artifact, error) {
	artifact, err := s.Serialize(report)
	if err != nil {
		return nil, err
	}
	if err := s.Upload(ctx, artifact); err != nil {
		return artifact, err
	}
	return artifact, nil
}
