// Package sink writes a report to a local file and transfers it to object storage
package sink

import (
	"context"
)

// Uploader transfers a local file, unmodified, to object storage
type Uploader interface {
	// Upload copies localPath to key inside bucket
	Upload(ctx context.Context, localPath, bucket, key string) error
}

// Artifact describes the report file produced by one run
type Artifact struct {
	LocalPath string `json:"local_path"`
	FileName  string `json:"file_name"`
	Bucket    string `json:"bucket"`
	Key       string `json:"key"`
	RowCount  int    `json:"row_count"`
	Uploaded  bool   `json:"uploaded"`
	Removed   bool   `json:"removed"` // local copy deleted after upload
}
