// Package s3 provides an S3-backed snapshot store.
//
// The snapshot lives as a single object in a bucket. This is the production
// durable backing target: the local cache may be wiped on every restart, the
// bucket copy survives.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"darkroom/internal/snapshot"
)

// defaultTimeout bounds each remote call. Failures are absorbed upstream, so
// a single bounded attempt is all that is needed on the request path.
const defaultTimeout = 10 * time.Second

// Store is an S3-backed snapshot store.
type Store struct {
	client  *awss3.Client
	bucket  string
	key     string
	timeout time.Duration
}

var _ snapshot.Store = (*Store)(nil)

// NewStore creates an S3-backed snapshot store reading and writing
// s3://bucket/key.
func NewStore(client *awss3.Client, bucket, key string) *Store {
	return &Store{
		client:  client,
		bucket:  bucket,
		key:     key,
		timeout: defaultTimeout,
	}
}

// Fetch reads the snapshot object.
// Returns snapshot.ErrNotExist if the object is absent.
func (s *Store) Fetch(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, snapshot.ErrNotExist
		}
		return nil, fmt.Errorf("get snapshot object: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read snapshot object: %w", err)
	}
	return data, nil
}

// Push replaces the snapshot object.
func (s *Store) Push(ctx context.Context, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put snapshot object: %w", err)
	}
	return nil
}
