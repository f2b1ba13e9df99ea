package users

import (
	"context"
	"errors"

	"github.com/imagehub/imagehub/go-services/internal/models"
	"github.com/imagehub/imagehub/go-services/pkg/apierrors"
	"github.com/imagehub/imagehub/go-services/pkg/logger"
)

// Profile is the verified identity extracted from a provider ID token.
type Profile struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Service encapsulates user-related business logic over a Repository.
type Service struct {
	repo Repository
}

func NewService(r Repository) *Service {
	return &Service{repo: r}
}

// Upsert reconciles a verified provider identity with the stored record.
// First login creates the record; later logins refresh the mutable profile
// fields while preserving CreatedAt and IsActive, so an administrative
// deactivation survives re-login. The lastLogin write is best-effort.
func (s *Service) Upsert(ctx context.Context, p Profile, provider string) (*models.User, error) {
	existing, err := s.repo.Get(ctx, p.Sub)
	if err != nil && !errors.Is(err, apierrors.ErrUserNotFound) {
		return nil, err
	}

	u := &models.User{
		ID:       p.Sub,
		Email:    p.Email,
		Name:     p.Name,
		Picture:  p.Picture,
		Provider: provider,
	}

	if existing == nil {
		if err := s.repo.Create(ctx, u); err != nil {
			return nil, err
		}
		logger.Infof("new user created: id=%s email=%s provider=%s", u.ID, u.Email, provider)
	} else {
		u.CreatedAt = existing.CreatedAt
		u.IsActive = existing.IsActive
		if err := s.repo.Update(ctx, u); err != nil {
			return nil, err
		}
		logger.Infof("user updated: id=%s email=%s", u.ID, u.Email)
	}

	// audit timestamp only; a failure here must never block a login
	if err := s.repo.UpdateLastLogin(ctx, u.ID); err != nil {
		logger.Warnf("failed to update last login for %s: %v", u.ID, err)
	}

	return u, nil
}

func (s *Service) Get(ctx context.Context, userID string) (*models.User, error) {
	return s.repo.Get(ctx, userID)
}

func (s *Service) List(ctx context.Context) ([]*models.User, error) {
	return s.repo.List(ctx)
}

func (s *Service) Deactivate(ctx context.Context, userID string) error {
	return s.repo.Deactivate(ctx, userID)
}
