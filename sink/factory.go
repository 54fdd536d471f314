package sink

import (
	"context"
	"fmt"

	"github.com/researchaccelerator-hub/yt-analytics-report/common"
	"github.com/researchaccelerator-hub/yt-analytics-report/config"
)

// NewUploader creates the uploader for the configured storage backend
func NewUploader(ctx context.Context, cfg config.StorageConfig) (Uploader, error) {
	switch cfg.Backend {
	case config.BackendS3, "":
		return NewS3Uploader(ctx, cfg)
	case config.BackendGCS:
		return NewGCSUploader(ctx)
	case config.BackendFTP:
		return NewFTPUploader(cfg.FTP), nil
	default:
		return nil, fmt.Errorf("%w: unsupported storage backend: %s", common.ErrArgumentFormat, cfg.Backend)
	}
}
