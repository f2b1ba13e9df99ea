package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/imagehub/imagehub/go-services/internal/models"
	"github.com/imagehub/imagehub/go-services/pkg/apierrors"
)

const (
	// SessionTTL is the fixed validity window of issued session tokens.
	SessionTTL = 24 * time.Hour

	issuerName = "imagehub"
)

// SessionClaims are the claims carried by a session token. Subject always
// equals the user ID the token was minted for; validators re-fetch the live
// user by Subject instead of trusting the embedded profile fields.
type SessionClaims struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
	jwt.RegisteredClaims
}

// Issuer signs session tokens with a symmetric key.
type Issuer struct {
	key []byte
}

func NewIssuer(signingKey string) *Issuer {
	return &Issuer{key: []byte(signingKey)}
}

// Issue mints a session token for the user and returns it with its absolute
// expiry.
func (i *Issuer) Issue(u *models.User) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(SessionTTL)
	claims := &SessionClaims{
		UserID:   u.ID,
		Email:    u.Email,
		Name:     u.Name,
		Provider: u.Provider,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuerName,
			Subject:   u.ID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, expiresAt, nil
}

// UserSource loads the live user record during validation.
// Satisfied by *users.Service.
type UserSource interface {
	Get(ctx context.Context, userID string) (*models.User, error)
}

// Validator verifies session tokens and resolves them to live users.
type Validator struct {
	key   []byte
	users UserSource
}

func NewValidator(signingKey string, users UserSource) *Validator {
	return &Validator{key: []byte(signingKey), users: users}
}

// Validate parses and verifies a session token, then re-fetches the user by
// Subject. Tokens declaring a non-HMAC signing method are rejected before any
// claim is trusted. A deactivated user fails with ErrUserInactive, which is
// how revocation works here: tokens themselves are stateless and unrevocable.
func (v *Validator) Validate(ctx context.Context, raw string) (*models.User, *SessionClaims, error) {
	token, err := jwt.ParseWithClaims(raw, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.key, nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", apierrors.ErrTokenVerification, err)
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, nil, apierrors.ErrTokenVerification
	}

	u, err := v.users.Get(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apierrors.ErrUserNotFound) {
			return nil, nil, fmt.Errorf("%w: subject no longer exists", apierrors.ErrTokenVerification)
		}
		return nil, nil, err
	}
	if !u.IsActive {
		return nil, nil, fmt.Errorf("%w: %s", apierrors.ErrUserInactive, u.ID)
	}
	return u, claims, nil
}
