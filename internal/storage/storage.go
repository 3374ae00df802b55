package storage

import (
	"context"
	"time"
)

// Service publishes NFT metadata documents to object storage.
type Service interface {
	// PutJSON stores value as a JSON object under key and returns its s3:// location.
	PutJSON(ctx context.Context, key string, value any) (string, error)
	// ObjectURL returns a time-limited URL for reading key.
	ObjectURL(ctx context.Context, key string, expires time.Duration) (string, error)
}

// Options conveys the destination bucket and key layout.
type Options struct {
	Bucket    string
	KeyPrefix string
}
