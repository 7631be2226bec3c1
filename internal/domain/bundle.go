package domain

import (
	"crypto/rsa"
	"crypto/x509"
	"time"
)

// Bundle is a Service Verifiable Identity Document: a workload's X.509 leaf
// certificate, its private key, and the CA chain needed to verify it.
//
// A Bundle is treated as immutable after construction. The Identity Agent
// replaces the whole value atomically on rotation; it never mutates one in
// place.
type Bundle struct {
	SpiffeID    SpiffeID
	Certificate *x509.Certificate
	PrivateKey  *rsa.PrivateKey
	CAChain     []*x509.Certificate
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// NewBundle constructs a Bundle from its already-validated components.
func NewBundle(id SpiffeID, cert *x509.Certificate, key *rsa.PrivateKey, chain []*x509.Certificate) (Bundle, error) {
	if cert == nil || key == nil || len(chain) == 0 {
		return Bundle{}, ErrBundleInvalid
	}
	certPub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok || certPub.N.Cmp(key.PublicKey.N) != 0 {
		return Bundle{}, ErrBundleInvalid
	}
	return Bundle{
		SpiffeID:    id,
		Certificate: cert,
		PrivateKey:  key,
		CAChain:     chain,
		IssuedAt:    cert.NotBefore,
		ExpiresAt:   cert.NotAfter,
	}, nil
}

// TTL returns the bundle's total validity window.
func (b Bundle) TTL() time.Duration {
	return b.ExpiresAt.Sub(b.IssuedAt)
}

// IsValidAt reports whether the bundle has not yet expired at the given time.
func (b Bundle) IsValidAt(now time.Time) bool {
	return !b.ExpiresAt.IsZero() && now.Before(b.ExpiresAt)
}

// RemainingFraction returns the fraction of TTL remaining at the given time,
// in [0, 1]. Used by the Identity Agent to decide when to refresh.
func (b Bundle) RemainingFraction(now time.Time) float64 {
	total := b.TTL().Seconds()
	if total <= 0 {
		return 0
	}
	remaining := b.ExpiresAt.Sub(now).Seconds()
	if remaining < 0 {
		return 0
	}
	if remaining > total {
		return 1
	}
	return remaining / total
}

// Zeroize best-effort scrubs the private key material held in RAM. Called by
// the Identity Agent's stop()
func (b *Bundle) Zeroize() {
	if b.PrivateKey == nil {
		return
	}
	b.PrivateKey.D.SetInt64(0)
	for _, p := range b.PrivateKey.Primes {
		p.SetInt64(0)
	}
	b.PrivateKey = nil
}
