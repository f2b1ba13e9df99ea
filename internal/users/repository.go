package users

import (
	"context"

	"github.com/imagehub/imagehub/go-services/internal/models"
)

// Repository defines persistence operations for users. Get on a missing key
// returns an error wrapping apierrors.ErrUserNotFound; the upsert logic in
// Service branches on that.
type Repository interface {
	Create(ctx context.Context, u *models.User) error
	Get(ctx context.Context, userID string) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
	UpdateLastLogin(ctx context.Context, userID string) error
	List(ctx context.Context) ([]*models.User, error)
	Deactivate(ctx context.Context, userID string) error
}
