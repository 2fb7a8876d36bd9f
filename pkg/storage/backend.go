// Package storage writes per-bubble results to a local directory or S3.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrNotFound is returned by Get for absent keys.
var ErrNotFound = errors.New("storage: key not found")

// BlobStore defines the interface for abstract storage backends.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// Open picks a backend from target: "s3://bucket/prefix" or a local directory.
func Open(ctx context.Context, target string, opts ...S3Option) (BlobStore, error) {
	if target == "" {
		return nil, fmt.Errorf("empty storage target")
	}
	if !strings.HasPrefix(target, "s3://") {
		return NewLocalStore(target), nil
	}

	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid storage target %q: %w", target, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid storage target %q: missing bucket", target)
	}
	return NewS3StoreFromEnv(ctx, u.Host, strings.Trim(u.Path, "/"), opts...)
}

// ResultKey maps a bubble id to an object key. Ids such as ">1>4" are escaped.
func ResultKey(bubbleID string) string {
	return url.PathEscape(bubbleID) + ".json"
}
