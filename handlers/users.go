package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imagehub/imagehub/go-services/internal/users"
	"github.com/imagehub/imagehub/go-services/pkg/apierrors"
	"github.com/imagehub/imagehub/go-services/pkg/logger"
)

// UsersHandler exposes the administrative user surface: listing and
// soft-deletion. Deactivated records are retained for audit.
type UsersHandler struct {
	users *users.Service
}

func NewUsersHandler(u *users.Service) *UsersHandler {
	return &UsersHandler{users: u}
}

// Register routes under /api/users, all behind the auth gate.
func (h *UsersHandler) Register(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	g := rg.Group("/api/users", requireAuth)
	g.GET("", h.List)
	g.POST("/:id/deactivate", h.Deactivate)
}

func (h *UsersHandler) List(c *gin.Context) {
	list, err := h.users.List(c.Request.Context())
	if err != nil {
		logger.Errorf("user listing failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": list, "count": len(list)})
}

func (h *UsersHandler) Deactivate(c *gin.Context) {
	id := c.Param("id")
	if err := h.users.Deactivate(c.Request.Context(), id); err != nil {
		logger.Warnf("deactivation failed for %s: %v", id, err)
		c.JSON(apierrors.Status(err), gin.H{"error": err.Error()})
		return
	}
	logger.Infof("user deactivated: id=%s", id)
	c.JSON(http.StatusOK, gin.H{"message": "user deactivated"})
}
