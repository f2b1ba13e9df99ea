package users

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/imagehub/imagehub/go-services/internal/models"
	"github.com/imagehub/imagehub/go-services/pkg/apierrors"
	"github.com/imagehub/imagehub/go-services/pkg/logger"
)

// RedisRepository implements Repository using Redis as the backing store.
// Records are stored as JSON under "<prefix>user:<id>"; a set at
// "<prefix>user:list" serves as the membership index for listing.
type RedisRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisRepository creates a Redis-based user repository. Prefix may be empty.
func NewRedisRepository(client *redis.Client, prefix string) *RedisRepository {
	return &RedisRepository{client: client, prefix: prefix + "user:"}
}

func (r *RedisRepository) key(userID string) string {
	return r.prefix + userID
}

func (r *RedisRepository) listKey() string {
	return r.prefix + "list"
}

func (r *RedisRepository) set(ctx context.Context, u *models.User) error {
	b, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	// users do not expire
	return r.client.Set(ctx, r.key(u.ID), b, 0).Err()
}

func (r *RedisRepository) Create(ctx context.Context, u *models.User) error {
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	u.IsActive = true

	if err := r.set(ctx, u); err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	// membership index is best-effort: a missing index entry degrades listing,
	// never creation
	if err := r.client.SAdd(ctx, r.listKey(), u.ID).Err(); err != nil {
		logger.Warnf("failed to index user %s: %v", u.ID, err)
	}
	return nil
}

func (r *RedisRepository) Get(ctx context.Context, userID string) (*models.User, error) {
	b, err := r.client.Get(ctx, r.key(userID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("%w: %s", apierrors.ErrUserNotFound, userID)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	var u models.User
	if err := json.Unmarshal(b, &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &u, nil
}

// Update overwrites the record, preserving the original CreatedAt.
func (r *RedisRepository) Update(ctx context.Context, u *models.User) error {
	existing, err := r.Get(ctx, u.ID)
	if err != nil {
		return err
	}
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = time.Now().UTC()

	if err := r.set(ctx, u); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (r *RedisRepository) UpdateLastLogin(ctx context.Context, userID string) error {
	u, err := r.Get(ctx, userID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	u.LastLogin = now
	u.UpdatedAt = now
	return r.set(ctx, u)
}

// List returns all indexed users. Members present in the index but missing as
// records are skipped, not fatal.
func (r *RedisRepository) List(ctx context.Context) ([]*models.User, error) {
	ids, err := r.client.SMembers(ctx, r.listKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	var out []*models.User
	for _, id := range ids {
		u, err := r.Get(ctx, id)
		if err != nil {
			logger.Warnf("skipping indexed user %s: %v", id, err)
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (r *RedisRepository) Deactivate(ctx context.Context, userID string) error {
	u, err := r.Get(ctx, userID)
	if err != nil {
		return err
	}
	u.IsActive = false
	u.UpdatedAt = time.Now().UTC()
	return r.set(ctx, u)
}
