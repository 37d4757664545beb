// Package minio stores run artifacts (reports, complexes, logs) in an S3
// compatible bucket through minio-go.
package minio

import (
	"context"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/turtacn/DockFlow/internal/config"
	"github.com/turtacn/DockFlow/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DockFlow/pkg/errors"
)

const (
	defaultRegion        = "us-east-1"
	defaultPresignExpiry = time.Hour
	connectTimeout       = 10 * time.Second
)

// ObjectAPI is the subset of *minio.Client used by the store.
type ObjectAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
}

// Client wraps an ObjectAPI bound to the artifact bucket.
type Client struct {
	api    ObjectAPI
	bucket string
	region string
	logger logging.Logger
}

// NewClient connects to the configured endpoint and makes sure the bucket exists.
func NewClient(ctx context.Context, cfg config.MinIOConfig, logger logging.Logger) (*Client, error) {
	if cfg.Region == "" {
		cfg.Region = defaultRegion
	}
	if cfg.Bucket == "" {
		cfg.Bucket = config.DefaultMinIOBucket
	}
	api, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to create minio client").WithDetail(cfg.Endpoint)
	}

	c := newClient(api, cfg.Bucket, cfg.Region, logger)
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := c.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	c.logger.Info("minio client connected", logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket), logging.Bool("ssl", cfg.UseSSL))
	return c, nil
}

func newClient(api ObjectAPI, bucket, region string, logger logging.Logger) *Client {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Client{api: api, bucket: bucket, region: region, logger: logger.Named("minio")}
}

// Bucket is the artifact bucket name.
func (c *Client) Bucket() string { return c.bucket }

// EnsureBucket creates the artifact bucket when it is missing.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.api.BucketExists(ctx, c.bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to reach minio").WithDetail(c.bucket)
	}
	if exists {
		return nil
	}
	if err := c.api.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{Region: c.region}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to create bucket").WithDetail(c.bucket)
	}
	c.logger.Info("created bucket", logging.String("bucket", c.bucket))
	return nil
}

// HealthCheck reports whether the bucket is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	exists, err := c.api.BucketExists(ctx, c.bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "minio unreachable")
	}
	if !exists {
		return errors.New(errors.ErrCodeStorageError, "bucket missing").WithDetail(c.bucket)
	}
	return nil
}

//Personal.AI order the ending
