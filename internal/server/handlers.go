package server

import (
	"errors"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"darkroom/internal/gallery"
)

// fail maps a gallery error to its HTTP status. Unexpected failures are
// reported generically; the detail goes to the log, not the client.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gallery.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, gallery.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// photoID parses the :id path parameter.
func photoID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid photo id"})
		return uuid.UUID{}, false
	}
	return id, true
}

// handleHealth reports liveness and the current record count.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"photos":        s.gallery.Count(c.Request.Context()),
		"uptimeSeconds": int64(time.Since(s.startTime).Seconds()),
	})
}

// handleListPublic serves the public projection: published records only,
// ordered by their publish order.
func (s *Server) handleListPublic(c *gin.Context) {
	col := s.gallery.Public(c.Request.Context())
	c.JSON(http.StatusOK, s.toPublicList(col))
}

// handleListAdmin serves the full curation view.
func (s *Server) handleListAdmin(c *gin.Context) {
	col := s.gallery.Admin(c.Request.Context())
	c.JSON(http.StatusOK, s.toAdminList(col))
}

// handleSignUpload issues a short-lived signed upload credential under the
// scoped upload folder, keyed by a freshly generated id.
func (s *Server) handleSignUpload(c *gin.Context) {
	key := path.Join(s.uploadPrefix, uuid.Must(uuid.NewV7()).String())
	if ext := path.Ext(c.Query("name")); ext != "" {
		key += ext
	}

	signed, err := s.blobs.SignUpload(c.Request.Context(), key)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, signed)
}

type registerRequest struct {
	BlobKey      string `json:"blobKey" binding:"required"`
	OriginalName string `json:"originalName"`
	DisplayName  string `json:"displayName"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
}

// handleRegister records a completed upload in the collection.
func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "blobKey is required"})
		return
	}

	rec, err := s.gallery.Register(c.Request.Context(), gallery.RegisterInput{
		BlobKey:      req.BlobKey,
		OriginalName: req.OriginalName,
		DisplayName:  req.DisplayName,
		Width:        req.Width,
		Height:       req.Height,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, s.toAdmin(rec))
}

type updateRequest struct {
	DisplayName *string `json:"displayName"`
	Order       *int    `json:"order"`
}

// handleUpdate applies a partial update: only fields present in the body are
// touched.
func (s *Server) handleUpdate(c *gin.Context) {
	id, ok := photoID(c)
	if !ok {
		return
	}

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}

	rec, err := s.gallery.Update(c.Request.Context(), id, gallery.Patch{
		DisplayName: req.DisplayName,
		Order:       req.Order,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.toAdmin(rec))
}

// handleRepair re-probes a record's binary for pixel dimensions and
// re-derives its geometry. Used when an upload was registered before its
// dimensions were known.
func (s *Server) handleRepair(c *gin.Context) {
	id, ok := photoID(c)
	if !ok {
		return
	}

	rec, err := s.gallery.RepairDimensions(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.toAdmin(rec))
}

// handleDelete removes one record and then best-effort deletes its binary.
// Blob store failure is logged and absorbed: the metadata deletion already
// succeeded and that is what the response reports.
func (s *Server) handleDelete(c *gin.Context) {
	id, ok := photoID(c)
	if !ok {
		return
	}

	blobKey, err := s.gallery.Delete(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}

	if err := s.blobs.Delete(c.Request.Context(), blobKey); err != nil {
		s.logger.Warn("binary cleanup failed", "blobKey", blobKey, "error", err)
	}

	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

type publishRequest struct {
	IDs *[]uuid.UUID `json:"ids"`
}

// handlePublish sets the published subset. With an id list, exactly those
// records become published in list order; without one, the whole collection
// is published in its existing order.
func (s *Server) handlePublish(c *gin.Context) {
	var req publishRequest
	// An absent body means "publish everything", same as {}.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}

	var (
		col gallery.Collection
		err error
	)
	if req.IDs == nil {
		col, err = s.gallery.PublishAll(c.Request.Context())
	} else {
		col, err = s.gallery.Publish(c.Request.Context(), *req.IDs)
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.toAdminList(col))
}

type reorderRequest struct {
	IDs *[]uuid.UUID `json:"ids"`
}

// handleReorder applies a full reorder from list position.
func (s *Server) handleReorder(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IDs == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ids must be a list"})
		return
	}

	col, err := s.gallery.ReorderAll(c.Request.Context(), *req.IDs)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.toAdminList(col))
}

// handleClear empties the collection, then best-effort deletes every binary
// concurrently. Cleanup failures are logged and absorbed.
func (s *Server) handleClear(c *gin.Context) {
	prior, err := s.gallery.Clear(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}

	g, ctx := errgroup.WithContext(c.Request.Context())
	g.SetLimit(4)
	for _, rec := range prior {
		rec := rec
		g.Go(func() error {
			if err := s.blobs.Delete(ctx, rec.BlobKey); err != nil {
				s.logger.Warn("binary cleanup failed", "blobKey", rec.BlobKey, "error", err)
			}
			return nil
		})
	}
	// Errors are absorbed per blob; Wait only synchronizes.
	_ = g.Wait()

	if cl := claims(c); cl != nil {
		s.logger.Info("collection cleared", "subject", cl.Subject, "records", len(prior))
	}
	c.JSON(http.StatusOK, gin.H{"cleared": len(prior)})
}
