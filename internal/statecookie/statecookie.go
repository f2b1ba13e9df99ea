package statecookie

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/imagehub/imagehub/go-services/pkg/apierrors"
)

const (
	cookieName = "oidc_state"

	// TTL is the absolute lifetime of the state cookie.
	TTL = 10 * time.Minute
)

// New generates a fresh CSRF state value: 32 random bytes, URL-safe encoded.
func New() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// Set binds the state value to an HTTP-only cookie. Secure mirrors whether
// the request arrived over TLS.
func Set(w http.ResponseWriter, value string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(TTL),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Take reads the state cookie and invalidates it in one step, so a state
// value can never be presented twice. Clearing is advisory (the client may
// ignore the expired Set-Cookie); the authoritative one-shot guarantee comes
// from the provider rejecting a reused authorization code.
func Take(w http.ResponseWriter, r *http.Request) (string, error) {
	c, err := r.Cookie(cookieName)
	expire(w)
	if err != nil {
		return "", fmt.Errorf("%w: missing state cookie", apierrors.ErrInvalidState)
	}
	return c.Value, nil
}

func expire(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-1 * time.Hour),
		HttpOnly: true,
	})
}
