package mtls

import (
	"context"
	"crypto/tls"
	"crypto/x509"
)

// CertSource provides the current certificate and trust bundle for mTLS
// handshakes. internal/identityagent.Agent implements this
// interface directly, so this package needs zero awareness of attestation
// or rotation; it only ever reads through the accessor.
//
// GetTLSCertificate and GetRootCAs run on the TLS handshake path.
// internal/identityagent.Agent serves them from memory while its held
// bundle is fresh, and performs a synchronous Workload API fetch when no
// bundle is held or the held one is inside its final refresh window.
type CertSource interface {
	// GetTLSCertificate returns the current leaf certificate and private
	// key. The returned tls.Certificate.Leaf must be populated.
	GetTLSCertificate(ctx context.Context) (tls.Certificate, error)

	// GetRootCAs returns the current CA trust bundle.
	GetRootCAs(ctx context.Context) (*x509.CertPool, error)

	// Close releases resources held by the source. Idempotent.
	Close() error
}
