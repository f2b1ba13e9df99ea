package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imagehub/imagehub/go-services/internal/users"
	"github.com/imagehub/imagehub/go-services/pkg/middleware"
)

func newUsersRouter(t *testing.T) (*gin.Engine, *users.Service) {
	t.Helper()
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	svc := users.NewService(users.NewRedisRepository(client, "test:"))

	r := gin.New()
	h := NewUsersHandler(svc)
	h.Register(r.Group("/"), middleware.RequireAuth(middleware.NewAPIKeyAuthenticator("adminkey")))
	return r, svc
}

func TestUsersList(t *testing.T) {
	r, svc := newUsersRouter(t)

	ctx := context.Background()
	for _, p := range []users.Profile{
		{Sub: "sub-1", Email: "a@b.c", Name: "Alice"},
		{Sub: "sub-2", Email: "b@b.c", Name: "Bob"},
	} {
		_, err := svc.Upsert(ctx, p, "oidc")
		require.NoError(t, err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer adminkey")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
}

func TestUsersList_RequiresAuth(t *testing.T) {
	r, _ := newUsersRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUsersDeactivate(t *testing.T) {
	r, svc := newUsersRouter(t)

	ctx := context.Background()
	_, err := svc.Upsert(ctx, users.Profile{Sub: "sub-1", Email: "a@b.c", Name: "Alice"}, "oidc")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/users/sub-1/deactivate", nil)
	req.Header.Set("Authorization", "Bearer adminkey")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	u, err := svc.Get(ctx, "sub-1")
	require.NoError(t, err)
	assert.False(t, u.IsActive)
}

func TestUsersDeactivate_Unknown(t *testing.T) {
	r, _ := newUsersRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/users/ghost/deactivate", nil)
	req.Header.Set("Authorization", "Bearer adminkey")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
