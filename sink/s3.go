package sink

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/researchaccelerator-hub/yt-analytics-report/common"
	"github.com/researchaccelerator-hub/yt-analytics-report/config"
	"github.com/rs/zerolog/log"
)

// S3Uploader uploads through the SDK's managed uploader, which splits large
// files into parts on its own.
type S3Uploader struct {
	uploader *manager.Uploader
}

// NewS3Uploader loads the default AWS credential chain (environment, shared
// config, instance role) and creates an uploader.
func NewS3Uploader(ctx context.Context, cfg config.StorageConfig) (*S3Uploader, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load AWS configuration: %v", common.ErrUpload, err)
	}
	return NewS3UploaderFromConfig(awsCfg, cfg.Endpoint), nil
}

// NewS3UploaderFromConfig creates an uploader from an explicit AWS config. A
// non-empty endpoint switches to path style addressing against that endpoint.
func NewS3UploaderFromConfig(awsCfg aws.Config, endpoint string) *S3Uploader {
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Uploader{uploader: manager.NewUploader(client)}
}

// Upload implements Uploader
func (u *S3Uploader) Upload(ctx context.Context, localPath, bucket, key string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("%w: failed to open %s: %v", common.ErrIO, localPath, err)
	}
	defer file.Close()

	out, err := u.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return fmt.Errorf("%w: failed to upload %s to s3://%s/%s: %v", common.ErrUpload, localPath, bucket, key, err)
	}

	log.Debug().Str("location", out.Location).Msg("S3 upload finished")
	return nil
}
