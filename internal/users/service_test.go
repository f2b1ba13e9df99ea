package users

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/imagehub/imagehub/go-services/internal/models"
	"github.com/imagehub/imagehub/go-services/pkg/apierrors"
)

// memRepo is an in-memory Repository with optional error injection.
type memRepo struct {
	store        map[string]*models.User
	lastLoginErr error
}

func newMemRepo() *memRepo {
	return &memRepo{store: map[string]*models.User{}}
}

func (m *memRepo) Create(ctx context.Context, u *models.User) error {
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	u.IsActive = true
	cp := *u
	m.store[u.ID] = &cp
	return nil
}

func (m *memRepo) Get(ctx context.Context, userID string) (*models.User, error) {
	u, ok := m.store[userID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apierrors.ErrUserNotFound, userID)
	}
	cp := *u
	return &cp, nil
}

func (m *memRepo) Update(ctx context.Context, u *models.User) error {
	existing, err := m.Get(ctx, u.ID)
	if err != nil {
		return err
	}
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	cp := *u
	m.store[u.ID] = &cp
	return nil
}

func (m *memRepo) UpdateLastLogin(ctx context.Context, userID string) error {
	if m.lastLoginErr != nil {
		return m.lastLoginErr
	}
	u, err := m.Get(ctx, userID)
	if err != nil {
		return err
	}
	u.LastLogin = time.Now().UTC()
	m.store[userID] = u
	return nil
}

func (m *memRepo) List(ctx context.Context) ([]*models.User, error) {
	var out []*models.User
	for _, u := range m.store {
		out = append(out, u)
	}
	return out, nil
}

func (m *memRepo) Deactivate(ctx context.Context, userID string) error {
	u, err := m.Get(ctx, userID)
	if err != nil {
		return err
	}
	u.IsActive = false
	m.store[userID] = u
	return nil
}

func TestUpsert_FirstLoginCreates(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)
	ctx := context.Background()

	u, err := svc.Upsert(ctx, Profile{Sub: "sub-1", Email: "a@b.c", Name: "Alice"}, "oidc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != "sub-1" || u.Provider != "oidc" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if u.CreatedAt.IsZero() || !u.CreatedAt.Equal(u.UpdatedAt) {
		t.Fatalf("expected createdAt == updatedAt on first login: %v / %v", u.CreatedAt, u.UpdatedAt)
	}
	if !u.IsActive {
		t.Fatal("expected new user to be active")
	}
}

func TestUpsert_SecondLoginPreservesCreatedAtAndIsActive(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)
	ctx := context.Background()

	first, err := svc.Upsert(ctx, Profile{Sub: "sub-2", Name: "Old"}, "oidc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// administrative lock must survive re-login
	if err := repo.Deactivate(ctx, "sub-2"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	second, err := svc.Upsert(ctx, Profile{Sub: "sub-2", Name: "New"}, "oidc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Name != "New" {
		t.Fatalf("expected refreshed name, got %q", second.Name)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("createdAt changed: %v -> %v", first.CreatedAt, second.CreatedAt)
	}
	if second.IsActive {
		t.Fatal("expected deactivation to survive re-login")
	}

	stored, err := repo.Get(ctx, "sub-2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.IsActive {
		t.Fatal("stored record reactivated by upsert")
	}
}

func TestUpsert_LastLoginFailureIsNotFatal(t *testing.T) {
	repo := newMemRepo()
	repo.lastLoginErr = errors.New("redis down")
	svc := NewService(repo)

	u, err := svc.Upsert(context.Background(), Profile{Sub: "sub-3"}, "oidc")
	if err != nil {
		t.Fatalf("lastLogin failure must not block login: %v", err)
	}
	if u == nil {
		t.Fatal("expected user despite lastLogin failure")
	}
}
