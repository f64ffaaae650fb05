// Package backup snapshots the state store and ships it to S3-compatible
// object storage on a schedule. It is entirely optional: a single-instance
// daemon writing to local disk has no replication requirement until an
// operator points it at a bucket, so every entry point here is a no-op
// unless config.BackupConfig.Enabled is true.
package backup

import (
	"context"
	"fmt"
	"io"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/duskfield/wxengine/internal/config"
)

// ObjectInfo describes one object returned by List.
type ObjectInfo struct {
	Key  string
	Size int64
}

// Client uploads, lists, and deletes snapshot archives in one bucket. It
// works against any S3-compatible endpoint (AWS S3 itself, or a
// self-hosted/third-party equivalent) by taking the endpoint as config
// rather than hardcoding AWS's default resolution.
type Client struct {
	s3     *s3.Client
	bucket string
	log    zerolog.Logger
}

// NewClient builds a Client from a BackupConfig. Credentials are supplied
// directly rather than pulled from the ambient environment, since the
// engine already centralizes secrets through its own config/settings
// layer.
func NewClient(ctx context.Context, cfg config.BackupConfig, log zerolog.Logger) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(regionOrDefault(cfg.Region)),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("backup: load aws config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = &cfg.Endpoint
		}
		o.UsePathStyle = true
	})

	return &Client{
		s3:     s3Client,
		bucket: cfg.Bucket,
		log:    log.With().Str("component", "backup_client").Logger(),
	}, nil
}

func regionOrDefault(region string) string {
	if region == "" {
		return "auto"
	}
	return region
}

// Upload streams an archive into the bucket under key, using the
// multipart manager so archive size is never bounded by available memory.
func (c *Client) Upload(ctx context.Context, key string, body io.Reader, size int64) error {
	uploader := manager.NewUploader(c.s3)
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        &c.bucket,
		Key:           &key,
		Body:          body,
		ContentLength: &size,
	})
	if err != nil {
		return fmt.Errorf("backup: upload %s: %w", key, err)
	}
	return nil
}

// List returns every object whose key starts with prefix.
func (c *Client) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	paginator := s3.NewListObjectsV2Paginator(c.s3, &s3.ListObjectsV2Input{
		Bucket: &c.bucket,
		Prefix: &prefix,
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("backup: list objects: %w", err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			var size int64
			if obj.Size != nil {
				size = *obj.Size
			}
			out = append(out, ObjectInfo{Key: *obj.Key, Size: size})
		}
	}
	return out, nil
}

// Delete removes a single object by key.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &c.bucket,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("backup: delete %s: %w", key, err)
	}
	return nil
}
