package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imagehub/imagehub/go-services/internal/config"
	"github.com/imagehub/imagehub/go-services/internal/storagepaths"
	"github.com/imagehub/imagehub/go-services/pkg/logger"
	"github.com/imagehub/imagehub/go-services/pkg/middleware"
)

// ObjectStore is the storage surface the asset handlers need.
// Satisfied by *storage.MinIOStorage.
type ObjectStore interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
}

// AssetsHandler stores and retrieves raw image bytes at the keys the path
// layout derives for the authenticated identity. Transcoding happens in the
// downstream pipeline, not here.
type AssetsHandler struct {
	cfg   *config.Config
	store ObjectStore
}

func NewAssetsHandler(cfg *config.Config, store ObjectStore) *AssetsHandler {
	return &AssetsHandler{cfg: cfg, store: store}
}

// Register routes under /api/assets, all behind the auth gate.
func (h *AssetsHandler) Register(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	g := rg.Group("/api/assets", requireAuth)
	g.POST("", h.Upload)
	g.GET("/:id/:orientation/:format", h.Get)
}

func (h *AssetsHandler) Upload(c *gin.Context) {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	defer file.Close()

	orientation := c.DefaultPostForm("orientation", "landscape")
	format := c.DefaultPostForm("format", "jpeg")

	id, err := newAssetID()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate asset id"})
		return
	}

	layout := storagepaths.LayoutFor(h.cfg.Auth.Mode, user.ID)
	paths := layout.PathsFor(id, orientation, format)

	contentType := header.Header.Get("Content-Type")
	if err := h.store.Upload(c.Request.Context(), paths.Original, file, header.Size, contentType); err != nil {
		logger.Errorf("asset upload failed for %s: %v", paths.Original, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store asset"})
		return
	}

	logger.Infof("asset stored: id=%s key=%s user=%s", id, paths.Original, user.ID)
	c.JSON(http.StatusCreated, gin.H{
		"id": id,
		"paths": gin.H{
			"original": paths.Original,
			"webp":     paths.WebP,
			"avif":     paths.AVIF,
		},
	})
}

func (h *AssetsHandler) Get(c *gin.Context) {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	layout := storagepaths.LayoutFor(h.cfg.Auth.Mode, user.ID)
	paths := layout.PathsFor(c.Param("id"), c.Param("orientation"), c.Param("format"))

	obj, err := h.store.Download(c.Request.Context(), paths.Original)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "asset not found"})
		return
	}
	defer obj.Close()

	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, obj); err != nil {
		logger.Warnf("asset stream interrupted for %s: %v", paths.Original, err)
	}
}

func newAssetID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
