package sink

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/researchaccelerator-hub/yt-analytics-report/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjectWriter struct {
	bytes.Buffer
	closed   bool
	closeErr error
}

func (w *fakeObjectWriter) Close() error {
	w.closed = true
	return w.closeErr
}

func TestGCSUpload(t *testing.T) {
	local := filepath.Join(t.TempDir(), "report.csv")
	require.NoError(t, os.WriteFile(local, []byte("video,views\nabc,1\n"), 0o600))

	writer := &fakeObjectWriter{}
	var gotBucket, gotKey string
	uploader := &GCSUploader{newWriter: func(_ context.Context, bucket, key string) io.WriteCloser {
		gotBucket, gotKey = bucket, key
		return writer
	}}

	require.NoError(t, uploader.Upload(context.Background(), local, "teamanalytics", "prefix/report.csv"))
	assert.Equal(t, "teamanalytics", gotBucket)
	assert.Equal(t, "prefix/report.csv", gotKey)
	assert.Equal(t, "video,views\nabc,1\n", writer.String())
	assert.True(t, writer.closed)
}

func TestGCSUploadFinalizeFailure(t *testing.T) {
	local := filepath.Join(t.TempDir(), "report.csv")
	require.NoError(t, os.WriteFile(local, []byte("x\n"), 0o600))

	writer := &fakeObjectWriter{closeErr: errors.New("googleapi: Error 403: forbidden")}
	uploader := &GCSUploader{newWriter: func(context.Context, string, string) io.WriteCloser { return writer }}

	err := uploader.Upload(context.Background(), local, "b", "k")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrUpload))
}

func TestGCSUploaderClose(t *testing.T) {
	closed := 0
	uploader := &GCSUploader{close: func() error {
		closed++
		return nil
	}}
	require.NoError(t, uploader.Close())
	assert.Equal(t, 1, closed)

	assert.NoError(t, (&GCSUploader{}).Close())
}
