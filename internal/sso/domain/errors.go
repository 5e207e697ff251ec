package domain

import (
	"github.com/allisson/vaultadmin/internal/errors"
)

// SSO error definitions.
var (
	// ErrTokenDenied indicates the token does not exist: it was never issued,
	// already consumed, or expired out of the store. The cases are
	// indistinguishable on purpose.
	ErrTokenDenied = errors.Wrap(errors.ErrUnauthorized, "sso token expired or already used")

	// ErrTokenExpired indicates the token was found but past its expiry. The
	// token is consumed either way.
	ErrTokenExpired = errors.Wrap(errors.ErrUnauthorized, "sso token expired")

	// ErrIssueLocked indicates the session is locked out of issuing tokens
	// after repeated decrypt failures.
	ErrIssueLocked = errors.Wrap(errors.ErrLocked, "sso issuance temporarily locked")

	// ErrNoSecret indicates the record has no stored secret to hand off.
	ErrNoSecret = errors.Wrap(errors.ErrInvalidInput, "record has no stored secret")

	// ErrUpstreamUnavailable indicates a network-level failure reaching the
	// external system. The user may retry the whole flow from launch.
	ErrUpstreamUnavailable = errors.Wrap(errors.ErrUpstream, "upstream unavailable")

	// ErrUpstreamInvalid indicates the external system answered with a
	// malformed or unexpected response. Fatal for the attempt: the token is
	// already consumed.
	ErrUpstreamInvalid = errors.Wrap(errors.ErrUpstream, "invalid upstream response")
)
