package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"alpr-service/internal/config"
)

var ErrNotConfigured = errors.New("r2 storage is not configured")

// ObjectPutter is the subset of the S3 client used for snapshot uploads.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type R2Client struct {
	client        ObjectPutter
	bucket        string
	endpoint      string
	publicBaseURL string
}

func NewR2Client(cfg config.StorageConfig) (*R2Client, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	awsCfg := aws.Config{
		Region:      region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	return newR2Client(client, cfg), nil
}

func newR2Client(client ObjectPutter, cfg config.StorageConfig) *R2Client {
	return &R2Client{
		client:        client,
		bucket:        cfg.Bucket,
		endpoint:      strings.TrimRight(cfg.Endpoint, "/"),
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}
}

func (r *R2Client) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	if r == nil || r.client == nil {
		return "", ErrNotConfigured
	}
	if size <= 0 {
		return "", fmt.Errorf("empty file")
	}
	input := &s3.PutObjectInput{
		Bucket:        &r.bucket,
		Key:           &key,
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	}
	if _, err := r.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("r2 upload failed: %w", err)
	}
	return r.objectURL(key), nil
}

func (r *R2Client) objectURL(key string) string {
	trimmedKey := strings.TrimLeft(key, "/")
	if r.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", r.publicBaseURL, r.bucket, trimmedKey)
	}
	return fmt.Sprintf("%s/%s/%s", r.endpoint, r.bucket, trimmedKey)
}
