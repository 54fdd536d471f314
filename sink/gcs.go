package sink

import (
	"context"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"
	"github.com/researchaccelerator-hub/yt-analytics-report/common"
	"github.com/rs/zerolog/log"
)

// GCSUploader uploads to a Google Cloud Storage bucket. The object writer sends
// the file in resumable chunks.
type GCSUploader struct {
	newWriter func(ctx context.Context, bucket, key string) io.WriteCloser
	close     func() error
}

// NewGCSUploader creates an uploader using Application Default Credentials.
func NewGCSUploader(ctx context.Context) (*GCSUploader, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create GCS client: %v", common.ErrUpload, err)
	}

	return &GCSUploader{
		newWriter: func(ctx context.Context, bucket, key string) io.WriteCloser {
			w := client.Bucket(bucket).Object(key).NewWriter(ctx)
			w.ContentType = "text/csv"
			return w
		},
		close: client.Close,
	}, nil
}

// Close releases the storage client.
func (u *GCSUploader) Close() error {
	if u.close == nil {
		return nil
	}
	return u.close()
}

// Upload implements Uploader
func (u *GCSUploader) Upload(ctx context.Context, localPath, bucket, key string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("%w: failed to open %s: %v", common.ErrIO, localPath, err)
	}
	defer file.Close()

	w := u.newWriter(ctx, bucket, key)
	written, err := io.Copy(w, file)
	if err != nil {
		_ = w.Close()
		return fmt.Errorf("%w: failed to upload %s to gs://%s/%s: %v", common.ErrUpload, localPath, bucket, key, err)
	}
	// the object is only committed on Close
	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: failed to finalize gs://%s/%s: %v", common.ErrUpload, bucket, key, err)
	}

	log.Debug().Int64("bytes", written).Msg("GCS upload finished")
	return nil
}
