package apierror

import (
	"errors"
	"net/http"
)

// Kind is one entry in the trust core's error taxonomy.
type Kind string

const (
	// ConfigError indicates unreachable storage, a missing signing key, or
	// an invalid trust domain. Fatal at startup.
	ConfigError Kind = "ConfigError"

	// AttestationDenied indicates a claimant failed the registry's scheme.
	AttestationDenied Kind = "AttestationDenied"

	// TicketInvalid indicates an unknown, expired, or mismatched redemption.
	TicketInvalid Kind = "TicketInvalid"

	// SigningError indicates a crypto library failure during issuance.
	SigningError Kind = "SigningError"

	// BootstrapError indicates the agent could not obtain a first bundle
	// within its retry budget.
	BootstrapError Kind = "BootstrapError"

	// NoIdentity indicates current() was called with no valid bundle.
	NoIdentity Kind = "NoIdentity"

	// TokenInvalid indicates a signature, expiry, audience, or
	// remote-validation failure.
	TokenInvalid Kind = "TokenInvalid"

	// PermissionDenied indicates a valid token lacking required scope, or a
	// user identity mismatch.
	PermissionDenied Kind = "PermissionDenied"

	// InvalidRequest indicates a malformed or semantically invalid request
	// body (e.g. an empty permissions set on a delegation request).
	InvalidRequest Kind = "InvalidRequest"

	// NotFound indicates a handler domain error, e.g. an unknown print job.
	NotFound Kind = "NotFound"

	// Internal is anything else.
	Internal Kind = "Internal"
)

// httpStatus maps each Kind to the status code surfaced to clients.
var httpStatus = map[Kind]int{
	ConfigError:       http.StatusInternalServerError,
	AttestationDenied: http.StatusUnauthorized,
	TicketInvalid:     http.StatusUnauthorized,
	SigningError:      http.StatusInternalServerError,
	BootstrapError:    http.StatusInternalServerError,
	NoIdentity:        http.StatusInternalServerError,
	TokenInvalid:      http.StatusUnauthorized,
	PermissionDenied:  http.StatusForbidden,
	InvalidRequest:    http.StatusBadRequest,
	NotFound:          http.StatusNotFound,
	Internal:          http.StatusInternalServerError,
}

// Error is a taxonomy-tagged error. Message is safe to return to a client;
// the wrapped error is retained for server-side logs only.
type Error struct {
	Kind    Kind
	Message string
	err     error
}

// New builds an Error of the given kind, wrapping cause for server logs.
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, err: cause}
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.Message + ": " + e.err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.err
}

// HTTPStatus returns the status code this error's kind maps to.
func (e *Error) HTTPStatus() int {
	if status, ok := httpStatus[e.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// As extracts an *Error from err, constructing a generic Internal wrapper
// if err is not already tagged.
func As(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return New(Internal, "internal error", err)
}
