package mtls

import (
	"crypto/x509"
	"errors"
	"strings"
	"time"

	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/domain"
)

// PeerIdentity is the authenticated peer extracted from an mTLS handshake.
type PeerIdentity struct {
	SpiffeID  domain.SpiffeID
	ExpiresAt time.Time
}

// ErrNoPeerIdentity indicates a certificate carried no parseable SPIFFE ID.
var ErrNoPeerIdentity = errors.New("mtls: certificate has no parseable spiffe id")

// ExtractPeerIdentity scans a verified peer certificate for its SPIFFE ID.
// It scans the SAN extension for a URI entry first and falls back to the
// Subject common name for legacy certificates.
func ExtractPeerIdentity(cert *x509.Certificate) (PeerIdentity, error) {
	if cert == nil {
		return PeerIdentity{}, errors.New("mtls: certificate is nil")
	}

	for _, uri := range cert.URIs {
		if uri.Scheme != "spiffe" {
			continue
		}
		id, err := domain.ParseSpiffeID(uri.String())
		if err != nil {
			return PeerIdentity{}, err
		}
		return PeerIdentity{SpiffeID: id, ExpiresAt: cert.NotAfter}, nil
	}

	if cn := cert.Subject.CommonName; strings.HasPrefix(cn, "spiffe://") {
		id, err := domain.ParseSpiffeID(cn)
		if err != nil {
			return PeerIdentity{}, err
		}
		return PeerIdentity{SpiffeID: id, ExpiresAt: cert.NotAfter}, nil
	}

	return PeerIdentity{}, ErrNoPeerIdentity
}
