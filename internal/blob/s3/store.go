// Package s3 provides the S3 implementation of the blob store interface.
//
// Uploads never pass through this process: the admin UI PUTs directly to a
// presigned URL and then registers the completed upload. Rendering URLs are
// derived from a public base URL (a CDN or the bucket website endpoint);
// image transforms happen downstream of that URL, not here.
package s3

import (
	"context"
	"fmt"
	"image"
	"net/url"
	"strings"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"darkroom/internal/blob"
)

const (
	// uploadTTL bounds how long a signed upload credential stays valid.
	uploadTTL = 15 * time.Minute

	// callTimeout bounds each remote call; failures are absorbed upstream.
	callTimeout = 10 * time.Second
)

// Store is an S3-backed blob store.
type Store struct {
	client    *awss3.Client
	presigner *awss3.PresignClient
	bucket    string
	publicURL string
}

var _ blob.Store = (*Store)(nil)

// NewStore creates an S3 blob store. publicURL is the base under which
// objects are publicly reachable (CDN or bucket endpoint), without a
// trailing slash.
func NewStore(client *awss3.Client, bucket, publicURL string) *Store {
	return &Store{
		client:    client,
		presigner: awss3.NewPresignClient(client),
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// SignUpload issues a presigned PUT for the given key.
func (s *Store) SignUpload(ctx context.Context, key string) (blob.SignedUpload, error) {
	req, err := s.presigner.PresignPutObject(ctx, &awss3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, awss3.WithPresignExpires(uploadTTL))
	if err != nil {
		return blob.SignedUpload{}, fmt.Errorf("presign upload: %w", err)
	}

	return blob.SignedUpload{
		URL:       req.URL,
		Key:       key,
		Method:    req.Method,
		ExpiresAt: time.Now().UTC().Add(uploadTTL),
	}, nil
}

// Delete removes the binary object.
func (s *Store) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	_, err := s.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// Dimensions probes the stored image by decoding just its header.
func (s *Store) Dimensions(ctx context.Context, key string) (int, int, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, 0, fmt.Errorf("get object: %w", err)
	}
	defer out.Body.Close()

	cfg, _, err := image.DecodeConfig(out.Body)
	if err != nil {
		return 0, 0, fmt.Errorf("decode image header: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// ImageURL returns the full-size rendering URL for the object.
func (s *Store) ImageURL(key string) string {
	return s.publicURL + "/" + escapeKey(key)
}

// ThumbURL returns a thumbnail rendering URL. Resizing is handled by the
// delivery layer (CDN image transforms) keyed off the width parameter.
func (s *Store) ThumbURL(key string) string {
	return s.ImageURL(key) + "?width=320"
}

// escapeKey escapes each path segment of a key without escaping the slashes
// between them.
func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
