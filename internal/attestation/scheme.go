package attestation

import (
	"context"

	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/domain"
)

// Scheme is the polymorphic attestation seam. Given the workload name a
// claimant asserts and the proof it supplied, a Scheme either confirms the
// claim or returns an error.
//
// StaticSecretScheme is the only variant implemented here (development
// use). Production deployments would add variants such as orchestrator
// service-account token verification, cloud instance-identity documents,
// process inspection, or unix-socket peer credentials; this interface is
// the seam they would implement against.
type Scheme interface {
	// Validate returns nil if proof substantiates claimedWorkloadName,
	// ErrAttestationDenied otherwise.
	Validate(ctx context.Context, claimedWorkloadName string, proof domain.AttestationProof) error
}

// StaticSecretScheme validates a claimant by comparing a pre-shared token
// against the registry's per-workload configuration. Development use only.
type StaticSecretScheme struct {
	tokensByWorkload map[string]string
}

// NewStaticSecretScheme builds a scheme from a workload-name → token map.
func NewStaticSecretScheme(tokensByWorkload map[string]string) *StaticSecretScheme {
	return &StaticSecretScheme{tokensByWorkload: tokensByWorkload}
}

// Validate implements Scheme.
func (s *StaticSecretScheme) Validate(ctx context.Context, claimedWorkloadName string, proof domain.AttestationProof) error {
	expected, ok := s.tokensByWorkload[claimedWorkloadName]
	if !ok {
		return ErrAttestationDenied
	}
	token := proof.Token()
	if token == "" || token != expected {
		return ErrAttestationDenied
	}
	return nil
}

var _ Scheme = (*StaticSecretScheme)(nil)
