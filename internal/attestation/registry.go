package attestation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/apierror"
	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/domain"
)

// DefaultTicketTTL is the lifetime of an attestation ticket.
const DefaultTicketTTL = 5 * time.Minute

type ticket struct {
	workloadName string
	expiresAt    time.Time
}

// Registry is the Attestation Registry. It decides whether a claimant is
// who it says it is, via a configured Scheme, and mints single-use tickets
// redeemable within a TTL window.
type Registry struct {
	scheme Scheme
	ttl    time.Duration

	mu      sync.Mutex
	tickets map[string]ticket
}

// NewRegistry builds a Registry around scheme. ttl <= 0 uses DefaultTicketTTL.
func NewRegistry(scheme Scheme, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTicketTTL
	}
	return &Registry{
		scheme:  scheme,
		ttl:     ttl,
		tickets: make(map[string]ticket),
	}
}

// Attest validates proof against workloadName using the configured scheme
// and, on success, mints a ticket bound to that name.
func (r *Registry) Attest(ctx context.Context, workloadName string, proof domain.AttestationProof) (string, error) {
	if workloadName == "" {
		return "", apierror.New(apierror.InvalidRequest, "service_name is required", nil)
	}
	if err := r.scheme.Validate(ctx, workloadName, proof); err != nil {
		return "", apierror.New(apierror.AttestationDenied, "attestation denied", err)
	}

	id := uuid.NewString()
	r.mu.Lock()
	r.tickets[id] = ticket{
		workloadName: workloadName,
		expiresAt:    time.Now().Add(r.ttl),
	}
	r.mu.Unlock()

	return id, nil
}

// Redeem performs a single-use-within-TTL check: it returns true and
// consumes the ticket only if ticketID exists, has not expired, and is
// bound to expectedWorkloadName. Expired tickets are evicted lazily, on
// this read.
func (r *Registry) Redeem(ticketID, expectedWorkloadName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tickets[ticketID]
	if !ok {
		return false
	}
	delete(r.tickets, ticketID)

	if time.Now().After(t.expiresAt) {
		return false
	}
	return t.workloadName == expectedWorkloadName
}
