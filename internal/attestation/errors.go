package attestation

import "errors"

var (
	// ErrAttestationDenied indicates a claimant failed the configured scheme.
	ErrAttestationDenied = errors.New("attestation: claim denied")

	// ErrTicketInvalid indicates an unknown, expired, or mismatched ticket
	// redemption.
	ErrTicketInvalid = errors.New("attestation: ticket is invalid")
)
