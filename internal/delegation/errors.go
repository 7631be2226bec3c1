package delegation

import "errors"

var (
	// ErrInvalidToken covers signature, expiry, and malformed-claims
	// failures uniformly.
	ErrInvalidToken = errors.New("delegation: token is invalid")

	// ErrAudienceMismatch indicates a structurally valid token whose aud
	// does not name the verifying workload.
	ErrAudienceMismatch = errors.New("delegation: token audience does not match verifying workload")

	// ErrUserMismatch indicates a delegate request names a user id other
	// than the one the bearer user session token authenticates.
	ErrUserMismatch = errors.New("delegation: requested user id does not match authenticated user")
)
