// Package blob abstracts the external binary store holding the actual image
// data. The gallery owns metadata only; uploads, deletion, rendering URLs,
// and dimension probes all go through this interface.
//
// All failures from a blob store are treated as recoverable by callers:
// binary cleanup is best-effort and dimension probes default to unknown.
package blob

import (
	"context"
	"time"
)

// SignedUpload is a short-lived credential for a direct-to-store upload.
type SignedUpload struct {
	// URL accepts a single PUT of the binary data until ExpiresAt.
	URL string `json:"url"`

	// Key is the object key the upload lands under; it becomes the record's
	// blob reference when the upload is registered.
	Key string `json:"key"`

	Method    string    `json:"method"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Store is the capability interface over the external binary store.
type Store interface {
	// SignUpload issues a short-lived signed upload credential for the key.
	SignUpload(ctx context.Context, key string) (SignedUpload, error)

	// Delete removes the binary object. Best-effort; callers log and
	// continue on failure.
	Delete(ctx context.Context, key string) error

	// Dimensions probes the stored image for its pixel dimensions.
	Dimensions(ctx context.Context, key string) (width, height int, err error)

	// ImageURL returns the public rendering URL for the object.
	ImageURL(key string) string

	// ThumbURL returns a thumbnail rendering URL for the object.
	ThumbURL(key string) string
}
