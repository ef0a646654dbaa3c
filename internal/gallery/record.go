// Package gallery owns the ordered photo collection and its persistence.
//
// The collection is the unit of persistence: every mutation rewrites the full
// snapshot, first to a local cache store and then, best-effort, to a remote
// durable backing store. The local copy may be wiped at any time (ephemeral
// filesystems); the backing store is the source the collection self-heals
// from on the next load.
package gallery

import (
	"path"
	"strings"
	"time"

	petname "github.com/dustinkirkland/golang-petname"
	"github.com/google/uuid"
)

// Orientation tags a photo by its aspect ratio.
type Orientation string

const (
	Landscape Orientation = "landscape"
	Portrait  Orientation = "portrait"
	Square    Orientation = "square"
)

// Record is one entry in the collection. Binary image data lives in the
// external blob store under BlobKey; the record carries metadata only.
type Record struct {
	// ID is assigned at creation and never reused, even after deletion.
	ID uuid.UUID `json:"id"`

	// BlobKey references the binary asset in the blob store.
	// Immutable once set; replacing an image means a new record.
	BlobKey string `json:"blobKey"`

	// DisplayName is the human-readable label.
	DisplayName string `json:"displayName"`

	// Width and Height in pixels. Zero means unknown, pending repair.
	Width  int `json:"width"`
	Height int `json:"height"`

	// AspectRatio and Orientation are derived from Width/Height.
	AspectRatio float64     `json:"aspectRatio"`
	Orientation Orientation `json:"orientation"`

	// Order positions the record within its scope: the full collection for
	// the admin view, the published subset for the public view.
	Order int `json:"order"`

	// Published controls visibility through the public projection.
	Published bool `json:"published"`

	CreatedAt time.Time `json:"createdAt"`
}

// Collection is the ordered set of records.
type Collection []Record

// indexOf returns the position of the record with the given id, or -1.
func (c Collection) indexOf(id uuid.UUID) int {
	for i := range c {
		if c[i].ID == id {
			return i
		}
	}
	return -1
}

// renumber rewrites Order values to a dense 0-based sequence following the
// current slice order.
func (c Collection) renumber() {
	for i := range c {
		c[i].Order = i
	}
}

// displayName picks a display name for a new record: the given name, else
// the stem of the original filename, else the stem of the blob key, else a
// generated pet name.
func displayName(name, originalName, blobKey string) string {
	if name != "" {
		return name
	}
	if s := stem(originalName); s != "" {
		return s
	}
	if s := stem(blobKey); s != "" {
		return s
	}
	return petname.Generate(2, "-")
}

// stem returns the base filename without its extension.
func stem(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}
