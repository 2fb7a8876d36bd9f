package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Store implements BlobStore for AWS S3. Keys are stored under Prefix.
type S3Store struct {
	Client *s3.Client
	Bucket string
	Prefix string
}

type s3Settings struct {
	endpoint  string
	region    string
	pathStyle bool
}

// S3Option tunes the S3 client, mostly for S3-compatible endpoints.
type S3Option func(*s3Settings)

// WithEndpoint points the client at a custom endpoint such as LocalStack.
// Path-style addressing is enabled alongside it.
func WithEndpoint(endpoint string) S3Option {
	return func(s *s3Settings) {
		s.endpoint = endpoint
		s.pathStyle = true
	}
}

func WithRegion(region string) S3Option {
	return func(s *s3Settings) { s.region = region }
}

func NewS3Store(cfg aws.Config, bucket, prefix string, opts ...S3Option) *S3Store {
	var set s3Settings
	for _, opt := range opts {
		opt(&set)
	}
	return &S3Store{
		Client: s3.NewFromConfig(cfg, func(o *s3.Options) {
			if set.endpoint != "" {
				o.BaseEndpoint = aws.String(set.endpoint)
			}
			o.UsePathStyle = set.pathStyle
		}),
		Bucket: bucket,
		Prefix: prefix,
	}
}

// NewS3StoreFromEnv loads the shared AWS configuration (env, profile, IMDS).
func NewS3StoreFromEnv(ctx context.Context, bucket, prefix string, opts ...S3Option) (*S3Store, error) {
	var set s3Settings
	for _, opt := range opts {
		opt(&set)
	}
	var loadOpts []func(*awsconfig.LoadOptions) error
	if set.region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(set.region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return NewS3Store(cfg, bucket, prefix, opts...), nil
}

func (s *S3Store) key(k string) string {
	if s.Prefix == "" {
		return k
	}
	return path.Join(s.Prefix, k)
}

func (s *S3Store) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(s.key(key)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to s3: %w", err)
	}
	return nil
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.key(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to download from s3: %w", err)
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}

// List returns keys relative to Prefix.
func (s *S3Store) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	full := s.key(prefix)
	if prefix == "" && s.Prefix != "" {
		full = s.Prefix + "/"
	}
	paginator := s3.NewListObjectsV2Paginator(s.Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.Bucket),
		Prefix: aws.String(full),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list s3 objects: %w", err)
		}
		for _, obj := range page.Contents {
			if obj.Key != nil {
				keys = append(keys, strings.TrimPrefix(strings.TrimPrefix(*obj.Key, s.Prefix), "/"))
			}
		}
	}
	return keys, nil
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
