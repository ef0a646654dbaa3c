package server

import (
	"time"

	"github.com/google/uuid"

	"darkroom/internal/gallery"
)

// publicPhoto is the display-relevant view of a published record. The raw
// blob reference stays internal; only the derived rendering URL is exposed.
type publicPhoto struct {
	ID          uuid.UUID           `json:"id"`
	DisplayName string              `json:"displayName"`
	Width       int                 `json:"width"`
	Height      int                 `json:"height"`
	AspectRatio float64             `json:"aspectRatio"`
	Orientation gallery.Orientation `json:"orientation"`
	Order       int                 `json:"order"`
	URL         string              `json:"url"`
}

// adminPhoto is the full curation view, including unpublished state, the raw
// blob reference, and a thumbnail rendering URL.
type adminPhoto struct {
	publicPhoto
	BlobKey   string    `json:"blobKey"`
	ThumbURL  string    `json:"thumbUrl"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Server) toPublic(r gallery.Record) publicPhoto {
	return publicPhoto{
		ID:          r.ID,
		DisplayName: r.DisplayName,
		Width:       r.Width,
		Height:      r.Height,
		AspectRatio: r.AspectRatio,
		Orientation: r.Orientation,
		Order:       r.Order,
		URL:         s.blobs.ImageURL(r.BlobKey),
	}
}

func (s *Server) toAdmin(r gallery.Record) adminPhoto {
	return adminPhoto{
		publicPhoto: s.toPublic(r),
		BlobKey:     r.BlobKey,
		ThumbURL:    s.blobs.ThumbURL(r.BlobKey),
		Published:   r.Published,
		CreatedAt:   r.CreatedAt,
	}
}

func (s *Server) toPublicList(col gallery.Collection) []publicPhoto {
	out := make([]publicPhoto, len(col))
	for i, r := range col {
		out[i] = s.toPublic(r)
	}
	return out
}

func (s *Server) toAdminList(col gallery.Collection) []adminPhoto {
	out := make([]adminPhoto, len(col))
	for i, r := range col {
		out[i] = s.toAdmin(r)
	}
	return out
}
