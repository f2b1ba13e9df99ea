package users

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/imagehub/imagehub/go-services/internal/models"
	"github.com/imagehub/imagehub/go-services/pkg/apierrors"
)

// MongoRepository implements Repository using a MongoDB collection keyed by
// the OIDC subject (_id). Alternative backend to RedisRepository.
type MongoRepository struct {
	col *mongo.Collection
}

// NewMongoRepository creates a repository for the given collection.
func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, u *models.User) error {
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	u.IsActive = true
	if _, err := r.col.InsertOne(ctx, u); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *MongoRepository) Get(ctx context.Context, userID string) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, bson.M{"_id": userID}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%w: %s", apierrors.ErrUserNotFound, userID)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (r *MongoRepository) Update(ctx context.Context, u *models.User) error {
	existing, err := r.Get(ctx, u.ID)
	if err != nil {
		return err
	}
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	if _, err := r.col.ReplaceOne(ctx, bson.M{"_id": u.ID}, u); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (r *MongoRepository) UpdateLastLogin(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": userID},
		bson.M{"$set": bson.M{"lastLogin": now, "updatedAt": now}})
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", apierrors.ErrUserNotFound, userID)
	}
	return nil
}

func (r *MongoRepository) List(ctx context.Context) ([]*models.User, error) {
	cur, err := r.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cur.Close(ctx)
	var out []*models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return out, nil
}

func (r *MongoRepository) Deactivate(ctx context.Context, userID string) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": userID},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", apierrors.ErrUserNotFound, userID)
	}
	return nil
}
