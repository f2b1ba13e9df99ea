package handlers

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/imagehub/imagehub/go-services/internal/config"
	"github.com/imagehub/imagehub/go-services/internal/models"
	"github.com/imagehub/imagehub/go-services/internal/oidc"
	"github.com/imagehub/imagehub/go-services/internal/statecookie"
	"github.com/imagehub/imagehub/go-services/internal/tokens"
	"github.com/imagehub/imagehub/go-services/internal/users"
	"github.com/imagehub/imagehub/go-services/pkg/apierrors"
	"github.com/imagehub/imagehub/go-services/pkg/logger"
	"github.com/imagehub/imagehub/go-services/pkg/metrics"
	"github.com/imagehub/imagehub/go-services/pkg/middleware"
)

// LoginResponse is returned after a successful callback.
type LoginResponse struct {
	Token     string       `json:"token"`
	User      *models.User `json:"user"`
	ExpiresAt int64        `json:"expires_at"`
}

// OIDCClient is what the handlers need from the provider. Satisfied by
// *oidc.Provider and by test fakes.
type OIDCClient interface {
	AuthCodeURL(state string) string
	oidc.Exchanger
	oidc.IdentitySource
}

// AuthHandler drives the login flow: initiate, callback (GET and POST),
// logout and profile.
type AuthHandler struct {
	cfg    *config.Config
	users  *users.Service
	issuer *tokens.Issuer
	oidc   OIDCClient
}

func NewAuthHandler(cfg *config.Config, u *users.Service, issuer *tokens.Issuer, client OIDCClient) *AuthHandler {
	return &AuthHandler{cfg: cfg, users: u, issuer: issuer, oidc: client}
}

// Register routes under /api/auth
func (h *AuthHandler) Register(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	a := rg.Group("/api/auth")
	a.GET("/login", h.Login)
	a.GET("/callback", h.CallbackGET)
	a.POST("/callback", h.CallbackPOST)
	a.POST("/logout", h.Logout)
	a.POST("/validate", h.ValidateKey)
	a.GET("/profile", requireAuth, h.Profile)
}

// Login initiates the OIDC flow: a fresh state value bound to an HTTP-only
// cookie plus the provider authorization URL for client-side redirect. No
// server-side session exists at this point.
func (h *AuthHandler) Login(c *gin.Context) {
	if h.cfg.Auth.Mode != config.ModeOIDC {
		c.JSON(http.StatusBadRequest, gin.H{"error": "OIDC authentication not enabled"})
		return
	}
	if h.oidc == nil {
		logger.Error("OIDC provider not initialized")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "OIDC not configured"})
		return
	}

	state, err := statecookie.New()
	if err != nil {
		logger.Errorf("failed to generate state: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate state"})
		return
	}
	statecookie.Set(c.Writer, state, c.Request.TLS != nil)

	c.JSON(http.StatusOK, gin.H{
		"auth_url": h.oidc.AuthCodeURL(state),
		"state":    state,
	})
	logger.Debugf("OIDC login initiated")
}

type callbackInput struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

// CallbackGET handles the redirect-style provider callback with code and
// state in the query string.
func (h *AuthHandler) CallbackGET(c *gin.Context) {
	h.handleCallback(c, callbackInput{
		Code:  c.Query("code"),
		State: c.Query("state"),
	})
}

// CallbackPOST handles the programmatic callback used by the frontend, with
// code and state in a JSON body. Validation is identical to the GET surface.
func (h *AuthHandler) CallbackPOST(c *gin.Context) {
	var in callbackInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	h.handleCallback(c, in)
}

// handleCallback is the single callback state machine both surfaces share:
// state check, code exchange, user upsert, token issuance. The state cookie
// is consumed exactly once regardless of outcome.
func (h *AuthHandler) handleCallback(c *gin.Context, in callbackInput) {
	if h.cfg.Auth.Mode != config.ModeOIDC {
		c.JSON(http.StatusBadRequest, gin.H{"error": "OIDC authentication not enabled"})
		return
	}
	if h.oidc == nil {
		logger.Error("OIDC provider not initialized during callback")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "OIDC not configured"})
		return
	}

	stored, err := statecookie.Take(c.Writer, c.Request)
	if err != nil || in.State == "" || subtle.ConstantTimeCompare([]byte(stored), []byte(in.State)) != 1 {
		metrics.Logins.WithLabelValues("invalid_state").Inc()
		logger.Warnf("invalid state in OIDC callback: %v", err)
		c.JSON(apierrors.Status(apierrors.ErrInvalidState), gin.H{"error": apierrors.ErrInvalidState.Error()})
		return
	}

	if in.Code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authorization code is required"})
		return
	}

	token, err := h.oidc.Exchange(c.Request.Context(), in.Code)
	if err != nil {
		metrics.Logins.WithLabelValues("exchange_failed").Inc()
		logger.Errorf("authorization code exchange failed: %v", err)
		c.JSON(apierrors.Status(err), gin.H{"error": "failed to exchange authorization code"})
		return
	}

	ident, err := h.oidc.ExtractIdentity(c.Request.Context(), token)
	if err != nil {
		metrics.Logins.WithLabelValues("exchange_failed").Inc()
		logger.Errorf("failed to extract identity: %v", err)
		c.JSON(apierrors.Status(err), gin.H{"error": "failed to verify identity token"})
		return
	}

	user, err := h.users.Upsert(c.Request.Context(), users.Profile{
		Sub:     ident.Sub,
		Email:   ident.Email,
		Name:    ident.Name,
		Picture: ident.Picture,
	}, "oidc")
	if err != nil {
		metrics.Logins.WithLabelValues("upsert_failed").Inc()
		logger.Errorf("user upsert failed for %s: %v", ident.Sub, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create or update user"})
		return
	}

	session, expiresAt, err := h.issuer.Issue(user)
	if err != nil {
		logger.Errorf("failed to issue session token for %s: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue session token"})
		return
	}

	metrics.Logins.WithLabelValues("success").Inc()
	logger.Infof("user logged in via OIDC: id=%s email=%s", user.ID, user.Email)
	c.JSON(http.StatusOK, LoginResponse{Token: session, User: user, ExpiresAt: expiresAt.Unix()})
}

// Logout is client-side only: the session token is discarded by the caller.
// Tokens are stateless and expire on their own.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
	logger.Debug("user logged out")
}

// Profile returns the authenticated user attached by the middleware.
func (h *AuthHandler) Profile(c *gin.Context) {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// ValidateKey lets clients probe whether a static API key is valid without
// hitting a protected endpoint.
func (h *AuthHandler) ValidateKey(c *gin.Context) {
	if h.cfg.Auth.Mode != config.ModeAPIKey {
		c.JSON(http.StatusBadRequest, gin.H{"error": "API key authentication not enabled"})
		return
	}
	credential, err := bearerValue(c.GetHeader("Authorization"))
	if err != nil || subtle.ConstantTimeCompare([]byte(credential), []byte(h.cfg.Auth.APIKey)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"valid": false, "error": apierrors.ErrInvalidCredential.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

// bearerValue extracts the value from "Authorization: Bearer <value>".
func bearerValue(header string) (string, error) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", fmt.Errorf("%w: invalid authorization header format", apierrors.ErrInvalidCredential)
	}
	return parts[1], nil
}
