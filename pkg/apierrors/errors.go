package apierrors

import (
	"errors"
	"net/http"
)

// Sentinel errors for the authentication core. Callers branch with errors.Is;
// handlers map them onto HTTP statuses via Status.
var (
	// ErrInvalidCredential covers a missing/malformed Authorization header or a
	// wrong static API key.
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrInvalidState is returned when the OIDC callback state does not match
	// the state cookie, or the cookie is absent. Login must restart.
	ErrInvalidState = errors.New("invalid state parameter")

	// ErrProviderExchange covers network/provider failures during the
	// authorization-code exchange or ID-token verification.
	ErrProviderExchange = errors.New("provider exchange failed")

	// ErrTokenVerification covers bad signature, wrong signing-method family
	// and expiry. Forces re-login.
	ErrTokenVerification = errors.New("token verification failed")

	// ErrUserInactive marks an administratively deactivated account. Distinct
	// from expiry: re-login will not help.
	ErrUserInactive = errors.New("user account is deactivated")

	// ErrUserNotFound is the typed miss for user lookups. The upsert logic
	// depends on distinguishing it from other storage errors.
	ErrUserNotFound = errors.New("user not found")

	// ErrServerMisconfigured marks invalid runtime configuration (unknown auth
	// mode, missing OIDC settings). Detected at startup; the middleware keeps
	// a defensive branch for it.
	ErrServerMisconfigured = errors.New("server misconfigured")
)

// Status maps a taxonomy error onto an HTTP status code.
// Unknown errors map to 500.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrInvalidCredential),
		errors.Is(err, ErrTokenVerification),
		errors.Is(err, ErrUserInactive):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrProviderExchange):
		return http.StatusBadGateway
	case errors.Is(err, ErrServerMisconfigured):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
