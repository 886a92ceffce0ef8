package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"podcastforge/internal/config"
	"podcastforge/internal/logging"
)

const defaultPresignExpiry = 7 * 24 * time.Hour

// S3API is the subset of the S3 client the backend uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3 stores objects in an S3-compatible bucket.
type S3 struct {
	client  S3API
	presign func(ctx context.Context, bucket, key string, expiry time.Duration) (string, error)
	bucket  string
	baseURL string
	expiry  time.Duration
	logger  *slog.Logger
}

// NewS3 builds an S3 backend from storage settings.
func NewS3(ctx context.Context, cfg config.Storage, logger *slog.Logger) (*S3, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("storage: s3 bucket is required")
	}
	awsCfg, err := buildAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage: build aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	presigner := s3.NewPresignClient(client)
	backend := NewS3WithClient(client, cfg, logger)
	backend.presign = func(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
		req, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		}, s3.WithPresignExpires(expiry))
		if err != nil {
			return "", err
		}
		return req.URL, nil
	}
	return backend, nil
}

// NewS3WithClient builds an S3 backend over an existing client. Without a
// public base URL and presigner, URLs take the s3://bucket/key form.
func NewS3WithClient(client S3API, cfg config.Storage, logger *slog.Logger) *S3 {
	expiry := time.Duration(cfg.PresignExpirySeconds) * time.Second
	if expiry <= 0 {
		expiry = defaultPresignExpiry
	}
	return &S3{
		client:  client,
		bucket:  strings.TrimSpace(cfg.Bucket),
		baseURL: trimBase(cfg.PublicBaseURL),
		expiry:  expiry,
		logger:  logging.NewComponentLogger(logger, "storage.s3"),
	}
}

// Name implements Store.
func (c *S3) Name() string { return "s3" }

// Put implements Store.
func (c *S3) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	key, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	input := &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	start := time.Now()
	if _, err := c.client.PutObject(ctx, input); err != nil {
		logging.ErrorWithContext(c.logger, "s3 put failed", "storage_put_failed",
			logging.String("bucket", c.bucket),
			logging.String("key", key),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check bucket permissions and credentials"),
		)
		return "", fmt.Errorf("storage: s3 upload %s: %w", key, err)
	}
	c.logger.Debug("object stored",
		logging.String("key", key),
		logging.Int("bytes", len(body)),
		logging.Duration("elapsed", time.Since(start)),
	)
	return c.URL(ctx, key)
}

// URL implements Store.
func (c *S3) URL(ctx context.Context, key string) (string, error) {
	key, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	if c.baseURL != "" {
		return c.baseURL + "/" + key, nil
	}
	if c.presign != nil {
		signed, err := c.presign(ctx, c.bucket, key, c.expiry)
		if err != nil {
			return "", fmt.Errorf("storage: presign %s: %w", key, err)
		}
		return signed, nil
	}
	return "s3://" + c.bucket + "/" + key, nil
}

// Open implements Store.
func (c *S3) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	key, err := CleanKey(key)
	if err != nil {
		return nil, err
	}
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundError(err) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("storage: s3 get %s: %w", key, err)
	}
	return out.Body, nil
}

// Delete implements Store.
func (c *S3) Delete(ctx context.Context, key string) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}
	_, err = c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFoundError(err) {
		return fmt.Errorf("storage: s3 delete %s: %w", key, err)
	}
	return nil
}

// KeyForURL implements Store. Presigned URLs are not mapped back; callers
// download those over HTTP.
func (c *S3) KeyForURL(url string) (string, bool) {
	prefix := "s3://" + c.bucket + "/"
	var key string
	switch {
	case strings.HasPrefix(url, prefix):
		key = strings.TrimPrefix(url, prefix)
	case c.baseURL != "" && strings.HasPrefix(url, c.baseURL+"/"):
		key = strings.TrimPrefix(url, c.baseURL+"/")
	default:
		return "", false
	}
	cleaned, err := CleanKey(key)
	if err != nil {
		return "", false
	}
	return cleaned, true
}

// Check verifies the bucket is reachable with the configured credentials.
func (c *S3) Check(ctx context.Context) error {
	if _, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)}); err != nil {
		return fmt.Errorf("storage: head bucket %s: %w", c.bucket, err)
	}
	return nil
}

func buildAWSConfig(ctx context.Context, cfg config.Storage) (aws.Config, error) {
	var optFns []func(*awsconfig.LoadOptions) error
	if region := strings.TrimSpace(cfg.Region); region != "" {
		optFns = append(optFns, awsconfig.WithRegion(region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	if cfg.MaxRetries > 0 {
		optFns = append(optFns, awsconfig.WithRetryMaxAttempts(cfg.MaxRetries))
	}
	if cfg.TimeoutSeconds > 0 {
		optFns = append(optFns, awsconfig.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		}))
	}
	return awsconfig.LoadDefaultConfig(ctx, optFns...)
}

func isNotFoundError(err error) bool {
	var nsk *s3types.NoSuchKey
	var nf *s3types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
