package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Service stores metadata on Amazon S3 (or compatible APIs).
type S3Service struct {
	uploader *manager.Uploader
	presign  *s3.PresignClient
	opts     Options
}

func NewS3Service(client *s3.Client, opts Options) (*S3Service, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}
	return &S3Service{
		uploader: manager.NewUploader(client),
		presign:  s3.NewPresignClient(client),
		opts:     opts,
	}, nil
}

func (s *S3Service) PutJSON(ctx context.Context, key string, value any) (string, error) {
	body, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", key, err)
	}

	fullKey := s.objectKey(key)
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.opts.Bucket),
		Key:          aws.String(fullKey),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String("application/json"),
		CacheControl: aws.String("no-cache"),
		ACL:          types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", fullKey, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.opts.Bucket, fullKey), nil
}

func (s *S3Service) ObjectURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(s.objectKey(key)),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}

func (s *S3Service) objectKey(key string) string {
	return JoinKey(s.opts.KeyPrefix, key)
}

// JoinKey joins a prefix and a key with exactly one slash.
func JoinKey(prefix, key string) string {
	prefix = strings.Trim(prefix, "/")
	key = strings.TrimLeft(key, "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

var _ Service = (*S3Service)(nil)
