package domain

import "errors"

// Sentinel errors for common domain failures.
// Use with errors.Is() for checking and fmt.Errorf("%w", ...) for wrapping with context.

var (
	// ErrInvalidTrustDomain indicates a trust domain label is empty or malformed.
	ErrInvalidTrustDomain = errors.New("trust domain is invalid")

	// ErrInvalidSpiffeID indicates a SPIFFE ID string failed to parse or does
	// not belong to the expected trust domain.
	ErrInvalidSpiffeID = errors.New("spiffe id is invalid")

	// ErrBundleExpired indicates a bundle's certificate has passed notAfter.
	ErrBundleExpired = errors.New("bundle has expired")

	// ErrBundleInvalid indicates a bundle is nil, or its certificate and
	// private key do not form a matching pair.
	ErrBundleInvalid = errors.New("bundle is invalid")
)
