package gallery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"darkroom/internal/logging"
	"darkroom/internal/snapshot"
)

// DimensionProber looks up pixel dimensions for a blob when the uploader did
// not supply them. Failures are recoverable: registration proceeds with
// unknown dimensions.
type DimensionProber interface {
	Dimensions(ctx context.Context, key string) (width, height int, err error)
}

// Store is the single entry point for all reads and mutations of the photo
// collection.
//
// Every mutation runs a full load-mutate-save cycle under a single mutex, so
// concurrent administrator actions in one process cannot interleave partial
// overwrites. Cross-process races with another instance remain possible
// (last full-snapshot write wins); that is an accepted limitation. Reads
// bypass the mutex entirely and never block on an in-flight mutation.
type Store struct {
	mu      sync.Mutex // serializes load+mutate+save
	cache   snapshot.Store
	backing snapshot.Store // nil when running cache-only
	prober  DimensionProber
	logger  *slog.Logger

	// dirty is set when the most recent backing push failed; the sync job
	// retries until it clears.
	dirty atomic.Bool

	now func() time.Time
}

// Config holds collection store dependencies.
type Config struct {
	// Cache is the local fast-access snapshot store. Required.
	Cache snapshot.Store

	// Backing is the remote durable snapshot store. Optional; when nil the
	// collection lives in the cache only.
	Backing snapshot.Store

	// Prober resolves unknown dimensions at registration time. Optional.
	Prober DimensionProber

	// Logger for structured logging.
	Logger *slog.Logger
}

// NewStore creates a collection store.
func NewStore(cfg Config) *Store {
	return &Store{
		cache:   cfg.Cache,
		backing: cfg.Backing,
		prober:  cfg.Prober,
		logger:  logging.Default(cfg.Logger).With("component", "gallery"),
		now:     time.Now,
	}
}

// Load obtains the current collection via the read-through chain: local
// cache, then remote backing store (repopulating the cache on a hit), then
// an empty collection. Load never fails; an empty result is a valid, if
// degraded, state.
func (s *Store) Load(ctx context.Context) Collection {
	if data, err := s.cache.Fetch(ctx); err == nil {
		if col, err := decode(data); err == nil {
			return col
		} else {
			s.logger.Warn("cache snapshot unparseable, falling back to backing store", "error", err)
		}
	} else if !errors.Is(err, snapshot.ErrNotExist) {
		s.logger.Warn("cache fetch failed, falling back to backing store", "error", err)
	}

	if s.backing == nil {
		return Collection{}
	}

	data, err := s.backing.Fetch(ctx)
	if err != nil {
		if !errors.Is(err, snapshot.ErrNotExist) {
			s.logger.Warn("backing store fetch failed, serving empty collection", "error", err)
		}
		return Collection{}
	}
	col, err := decode(data)
	if err != nil {
		s.logger.Warn("backing snapshot unparseable, serving empty collection", "error", err)
		return Collection{}
	}

	// Repopulate the cache so subsequent reads stay local.
	if err := s.cache.Push(ctx, data); err != nil {
		s.logger.Warn("cache repopulation failed", "error", err)
	}

	return col
}

// save persists the collection snapshot: local cache first, then the remote
// backing store. Neither failure is fatal; the in-memory result already
// reflects the mutation and governs the caller's response. A failed backing
// push marks the store dirty for the background sync job.
func (s *Store) save(ctx context.Context, col Collection) error {
	data, err := encode(col)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if err := s.cache.Push(ctx, data); err != nil {
		s.logger.Error("cache write failed", "error", err)
	}

	if s.backing == nil {
		return nil
	}
	if err := s.backing.Push(ctx, data); err != nil {
		s.logger.Error("backing store write failed, will retry in background", "error", err)
		s.dirty.Store(true)
		return nil
	}
	s.dirty.Store(false)
	return nil
}

// Dirty reports whether the backing store is behind the local cache.
func (s *Store) Dirty() bool {
	return s.dirty.Load()
}

// FlushBacking re-pushes the current cache snapshot to the backing store.
// Called by the background sync job while the store is dirty.
func (s *Store) FlushBacking(ctx context.Context) error {
	if s.backing == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.cache.Fetch(ctx)
	if err != nil {
		if errors.Is(err, snapshot.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("fetch cache snapshot: %w", err)
	}
	if err := s.backing.Push(ctx, data); err != nil {
		return fmt.Errorf("push snapshot: %w", err)
	}
	s.dirty.Store(false)
	return nil
}

// Count returns the number of records in the collection.
func (s *Store) Count(ctx context.Context) int {
	return len(s.Load(ctx))
}

// Public returns the published records ordered by their publish order.
func (s *Store) Public(ctx context.Context) Collection {
	col := s.Load(ctx)
	out := make(Collection, 0, len(col))
	for _, r := range col {
		if r.Published {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Admin returns all records, including unpublished, ordered by Order.
func (s *Store) Admin(ctx context.Context) Collection {
	col := s.Load(ctx)
	sort.SliceStable(col, func(i, j int) bool { return col[i].Order < col[j].Order })
	return col
}

// RegisterInput describes a completed upload to register.
type RegisterInput struct {
	BlobKey      string
	OriginalName string
	DisplayName  string
	Width        int
	Height       int
}

// Register appends a new record for a completed upload and returns it.
//
// When dimensions are not supplied, the blob store is probed for them; probe
// failure is recoverable and defaults to unknown dimensions rather than
// aborting registration.
func (s *Store) Register(ctx context.Context, in RegisterInput) (Record, error) {
	if in.BlobKey == "" {
		return Record{}, fmt.Errorf("%w: blobKey is required", ErrInvalidInput)
	}

	width, height := in.Width, in.Height
	if (width <= 0 || height <= 0) && s.prober != nil {
		w, h, err := s.prober.Dimensions(ctx, in.BlobKey)
		if err != nil {
			s.logger.Warn("dimension probe failed, registering with unknown dimensions",
				"blobKey", in.BlobKey, "error", err)
			width, height = 0, 0
		} else {
			width, height = w, h
		}
	}
	ratio, orientation := Classify(width, height)

	s.mu.Lock()
	defer s.mu.Unlock()

	col := s.Load(ctx)
	rec := Record{
		ID:          uuid.Must(uuid.NewV7()),
		BlobKey:     in.BlobKey,
		DisplayName: displayName(in.DisplayName, in.OriginalName, in.BlobKey),
		Width:       width,
		Height:      height,
		AspectRatio: ratio,
		Orientation: orientation,
		Order:       len(col),
		Published:   false,
		CreatedAt:   s.now().UTC(),
	}
	col = append(col, rec)

	if err := s.save(ctx, col); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Patch carries a partial update. Nil fields are left untouched.
type Patch struct {
	DisplayName *string
	Order       *int
}

// Update applies a partial update to one record and returns the result.
// Caller-supplied Order values are trusted as-is; no renumbering of other
// records happens on this path.
func (s *Store) Update(ctx context.Context, id uuid.UUID, patch Patch) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	col := s.Load(ctx)
	i := col.indexOf(id)
	if i < 0 {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if patch.DisplayName != nil {
		col[i].DisplayName = *patch.DisplayName
	}
	if patch.Order != nil {
		col[i].Order = *patch.Order
	}

	if err := s.save(ctx, col); err != nil {
		return Record{}, err
	}
	return col[i], nil
}

// Rename updates a record's display name.
func (s *Store) Rename(ctx context.Context, id uuid.UUID, name string) (Record, error) {
	return s.Update(ctx, id, Patch{DisplayName: &name})
}

// SetOrder updates a record's order value, trusting the caller's value.
func (s *Store) SetOrder(ctx context.Context, id uuid.UUID, order int) (Record, error) {
	return s.Update(ctx, id, Patch{Order: &order})
}

// RepairDimensions re-probes the blob store for a record's pixel dimensions
// and re-derives its geometry. This is the only path that mutates width and
// height after registration.
func (s *Store) RepairDimensions(ctx context.Context, id uuid.UUID) (Record, error) {
	if s.prober == nil {
		return Record{}, fmt.Errorf("%w: no dimension prober configured", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	col := s.Load(ctx)
	i := col.indexOf(id)
	if i < 0 {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	w, h, err := s.prober.Dimensions(ctx, col[i].BlobKey)
	if err != nil {
		return Record{}, fmt.Errorf("probe dimensions: %w", err)
	}
	col[i].Width = w
	col[i].Height = h
	col[i].AspectRatio, col[i].Orientation = Classify(w, h)

	if err := s.save(ctx, col); err != nil {
		return Record{}, err
	}
	return col[i], nil
}

// Delete removes one record, renumbers the remainder to a dense sequence,
// and returns the removed record's blob key so the caller can attempt
// best-effort deletion of the binary asset.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	col := s.Load(ctx)
	i := col.indexOf(id)
	if i < 0 {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	blobKey := col[i].BlobKey
	col = append(col[:i], col[i+1:]...)
	col.renumber()

	if err := s.save(ctx, col); err != nil {
		return "", err
	}
	return blobKey, nil
}

// Publish marks exactly the listed records as published, with Order taken
// from each id's position in the list, and unpublishes everything else.
// Ids not present in the collection are silently skipped.
func (s *Store) Publish(ctx context.Context, ids []uuid.UUID) (Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	col := s.Load(ctx)

	known := make(map[uuid.UUID]bool, len(col))
	for _, r := range col {
		known[r.ID] = true
	}

	// Positions are assigned after dropping unknown ids, keeping the
	// published scope's order dense even when the caller's list is stale.
	pos := make(map[uuid.UUID]int, len(ids))
	next := 0
	for _, id := range ids {
		if !known[id] {
			continue
		}
		if _, seen := pos[id]; !seen {
			pos[id] = next
			next++
		}
	}

	for i := range col {
		if p, ok := pos[col[i].ID]; ok {
			col[i].Published = true
			col[i].Order = p
		} else {
			col[i].Published = false
		}
	}

	if err := s.save(ctx, col); err != nil {
		return nil, err
	}
	return col, nil
}

// PublishAll publishes the entire collection, preserving its existing order.
func (s *Store) PublishAll(ctx context.Context) (Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	col := s.Load(ctx)
	for i := range col {
		col[i].Published = true
	}

	if err := s.save(ctx, col); err != nil {
		return nil, err
	}
	return col, nil
}

// ReorderAll assigns Order = position-in-list to every matching id (unmatched
// records keep their prior order value for the sort), stably sorts the
// collection by Order, and renumbers densely before persisting, so the final
// ordering is well-defined even for a partial id list.
func (s *Store) ReorderAll(ctx context.Context, ids []uuid.UUID) (Collection, error) {
	if ids == nil {
		return nil, fmt.Errorf("%w: ids list is required", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pos := make(map[uuid.UUID]int, len(ids))
	for i, id := range ids {
		if _, seen := pos[id]; !seen {
			pos[id] = i
		}
	}

	col := s.Load(ctx)
	for i := range col {
		if p, ok := pos[col[i].ID]; ok {
			col[i].Order = p
		}
	}
	sort.SliceStable(col, func(i, j int) bool { return col[i].Order < col[j].Order })
	col.renumber()

	if err := s.save(ctx, col); err != nil {
		return nil, err
	}
	return col, nil
}

// Clear replaces the collection with an empty one and returns the prior
// records so the caller can attempt binary cleanup for each.
func (s *Store) Clear(ctx context.Context) (Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prior := s.Load(ctx)
	if err := s.save(ctx, Collection{}); err != nil {
		return nil, err
	}
	return prior, nil
}

// encode serializes the collection as the persisted snapshot document: a
// single JSON array of records, indented for human readability. The same
// bytes land in the cache and the backing store.
func encode(col Collection) ([]byte, error) {
	if col == nil {
		col = Collection{}
	}
	return json.MarshalIndent(col, "", "  ")
}

// decode parses a snapshot document.
func decode(data []byte) (Collection, error) {
	var col Collection
	if err := json.Unmarshal(data, &col); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	if col == nil {
		col = Collection{}
	}
	return col, nil
}
