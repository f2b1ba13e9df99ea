package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/imagehub/imagehub/go-services/internal/models"
	"github.com/imagehub/imagehub/go-services/internal/tokens"
	"github.com/imagehub/imagehub/go-services/pkg/apierrors"
)

// fakeValidator implements TokenValidator
type fakeValidator struct {
	user *models.User
	err  error
}

func (f *fakeValidator) Validate(ctx context.Context, raw string) (*models.User, *tokens.SessionClaims, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.user, &tokens.SessionClaims{UserID: f.user.ID}, nil
}

func serve(t *testing.T, a Authenticator, header string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	g := gin.New()
	called := false
	g.GET("/", RequireAuth(a), func(c *gin.Context) {
		called = true
		u, ok := UserFromContext(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, u)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	return rw, called
}

func TestRequireAuth_APIKeyAccepted(t *testing.T) {
	a := NewAPIKeyAuthenticator("topsecret")
	rw, called := serve(t, a, "Bearer topsecret")

	require.Equal(t, http.StatusOK, rw.Code)
	require.True(t, called)
	require.Contains(t, rw.Body.String(), `"id":"api_key_user"`)
	require.Contains(t, rw.Body.String(), `"is_active":true`)
}

func TestRequireAuth_APIKeyRejected(t *testing.T) {
	a := NewAPIKeyAuthenticator("topsecret")
	rw, called := serve(t, a, "Bearer wrong")

	require.Equal(t, http.StatusUnauthorized, rw.Code)
	require.False(t, called, "downstream handler must not run on rejection")
}

func TestRequireAuth_MalformedHeaders(t *testing.T) {
	a := NewAPIKeyAuthenticator("topsecret")
	for _, header := range []string{
		"",
		"topsecret",
		"bearer topsecret",
		"Bearer topsecret extra",
		"Basic dXNlcjpwYXNz",
	} {
		rw, called := serve(t, a, header)
		require.Equal(t, http.StatusUnauthorized, rw.Code, "header %q", header)
		require.False(t, called, "header %q", header)
	}
}

func TestRequireAuth_SessionToken(t *testing.T) {
	u := &models.User{ID: "sub-1", IsActive: true}
	rw, called := serve(t, NewSessionAuthenticator(&fakeValidator{user: u}), "Bearer sometoken")

	require.Equal(t, http.StatusOK, rw.Code)
	require.True(t, called)
	require.Contains(t, rw.Body.String(), `"id":"sub-1"`)
}

func TestRequireAuth_SessionTokenInvalid(t *testing.T) {
	v := &fakeValidator{err: fmt.Errorf("%w: bad signature", apierrors.ErrTokenVerification)}
	rw, called := serve(t, NewSessionAuthenticator(v), "Bearer sometoken")

	require.Equal(t, http.StatusUnauthorized, rw.Code)
	require.False(t, called)
}

func TestRequireAuth_InactiveUser(t *testing.T) {
	v := &fakeValidator{err: fmt.Errorf("%w: sub-1", apierrors.ErrUserInactive)}
	rw, called := serve(t, NewSessionAuthenticator(v), "Bearer sometoken")

	require.Equal(t, http.StatusUnauthorized, rw.Code)
	require.False(t, called)
}

func TestRequireAuth_NilAuthenticator(t *testing.T) {
	rw, called := serve(t, nil, "Bearer anything")

	require.Equal(t, http.StatusInternalServerError, rw.Code)
	require.False(t, called)
}
