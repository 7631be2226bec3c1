package domain

import (
	"fmt"

	"github.com/spiffe/go-spiffe/v2/spiffeid"
)

// SpiffeID is a parsed identity URI of the form
// spiffe://<trust-domain>/<workload-path>.
type SpiffeID struct {
	id spiffeid.ID
}

// ParseSpiffeID parses a raw SPIFFE ID string.
func ParseSpiffeID(raw string) (SpiffeID, error) {
	id, err := spiffeid.FromString(raw)
	if err != nil {
		return SpiffeID{}, fmt.Errorf("%w: %s: %s", ErrInvalidSpiffeID, raw, err)
	}
	return SpiffeID{id: id}, nil
}

// String returns the full URI, e.g. "spiffe://example.org/print-service".
func (s SpiffeID) String() string {
	return s.id.String()
}

// TrustDomain returns the trust domain component of the ID.
func (s SpiffeID) TrustDomain() TrustDomain {
	return TrustDomain{td: s.id.TrustDomain()}
}

// IsZero reports whether this SpiffeID was never assigned a value.
func (s SpiffeID) IsZero() bool {
	return s.id.IsZero()
}

// Equal reports whether two SPIFFE IDs are the same URI.
func (s SpiffeID) Equal(other SpiffeID) bool {
	return s.id == other.id
}

// MemberOf reports whether the ID belongs to the given trust domain.
func (s SpiffeID) MemberOf(td TrustDomain) bool {
	return s.id.MemberOf(td.td)
}
