package domain

import (
	"fmt"
	"strings"

	"github.com/spiffe/go-spiffe/v2/spiffeid"
)

// TrustDomain is the administrative namespace that all SPIFFE IDs issued by
// this trust core are scoped to. It is fixed at CA initialization.
//
// Design note: validation (DNS-label rules, case handling) is delegated to
// the go-spiffe SDK's spiffeid.TrustDomain rather than re-implemented here,
// so this type stays a thin, comparable value object.
type TrustDomain struct {
	td spiffeid.TrustDomain
}

// NewTrustDomain parses and validates a trust domain label (e.g. "example.org").
// A SPIFFE ID URI such as "spiffe://example.org" is rejected.
func NewTrustDomain(name string) (TrustDomain, error) {
	if strings.Contains(name, ":/") {
		return TrustDomain{}, fmt.Errorf("%w: %s: a trust domain label carries no scheme", ErrInvalidTrustDomain, name)
	}
	td, err := spiffeid.TrustDomainFromString(name)
	if err != nil {
		return TrustDomain{}, fmt.Errorf("%w: %s: %s", ErrInvalidTrustDomain, name, err)
	}
	return TrustDomain{td: td}, nil
}

// String returns the trust domain's name (e.g. "example.org").
func (t TrustDomain) String() string {
	return t.td.Name()
}

// IDForWorkload builds the canonical SPIFFE ID for a workload name within
// this trust domain: spiffe://<trust-domain>/<workload-name>.
func (t TrustDomain) IDForWorkload(workloadName string) (SpiffeID, error) {
	id, err := spiffeid.FromSegments(t.td, workloadName)
	if err != nil {
		return SpiffeID{}, fmt.Errorf("%w: %s", ErrInvalidSpiffeID, err)
	}
	return SpiffeID{id: id}, nil
}

// Equal reports whether two trust domains have the same name.
func (t TrustDomain) Equal(other TrustDomain) bool {
	return t.td == other.td
}
