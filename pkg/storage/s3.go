package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// Config contains the coordinates of an S3-compatible bucket.
type Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	// BaseURL is the public origin objects are served from, without the bucket segment.
	BaseURL string
}

// PutObjectAPI is the subset of the S3 client used for publishing.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store writes objects into a single bucket and derives their public URLs.
type Store struct {
	client  PutObjectAPI
	bucket  string
	baseURL string
	logger  zerolog.Logger
}

// New builds a Store backed by an aws-sdk-go-v2 S3 client using path-style addressing.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (*Store, error) {
	if cfg.Bucket == "" || cfg.BaseURL == "" {
		return nil, fmt.Errorf("storage bucket and base url must be provided")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})

	return NewWithClient(client, cfg.Bucket, cfg.BaseURL, logger), nil
}

// NewWithClient wraps an existing client, mainly for tests.
func NewWithClient(client PutObjectAPI, bucket, baseURL string, logger zerolog.Logger) *Store {
	return &Store{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.With().Str("component", "object_storage").Logger(),
	}
}

// Put uploads body under key with the given content type.
func (s *Store) Put(ctx context.Context, key string, body io.ReadSeeker, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put object %s/%s: %w", s.bucket, key, err)
	}

	return nil
}

// PublicURL returns {baseURL}/{bucket}/{key}.
func (s *Store) PublicURL(key string) string {
	return s.baseURL + "/" + s.bucket + "/" + strings.TrimLeft(key, "/")
}
