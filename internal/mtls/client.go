package mtls

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"strings"

	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/domain"
)

// NewClientConfig builds a *tls.Config for an mTLS client. The returned
// config:
//   - presents the workload's current leaf and private key, fetched fresh
//     from source on every dial so rotation takes effect without restart;
//   - trusts the CA chain from the same source;
//   - requires the server certificate to carry a URI-SAN beginning with
//     "spiffe://<trustDomain>/".
//
// ctx is only used to validate that source is usable before returning;
// the returned config keeps calling source on every connection regardless
// of ctx's lifetime.
func NewClientConfig(ctx context.Context, source CertSource, trustDomain domain.TrustDomain) (*tls.Config, error) {
	if source == nil {
		return nil, errors.New("mtls: source is required")
	}

	if _, err := source.GetTLSCertificate(ctx); err != nil {
		return nil, fmt.Errorf("mtls: failed to get client certificate: %w", err)
	}
	if _, err := source.GetRootCAs(ctx); err != nil {
		return nil, fmt.Errorf("mtls: failed to get trust bundle: %w", err)
	}

	wantPrefix := "spiffe://" + trustDomain.String() + "/"

	return &tls.Config{
		MinVersion: tls.VersionTLS13,

		GetClientCertificate: func(*tls.CertificateRequestInfo) (*tls.Certificate, error) {
			cert, err := source.GetTLSCertificate(context.Background())
			if err != nil {
				return nil, fmt.Errorf("mtls: failed to get certificate during handshake: %w", err)
			}
			return &cert, nil
		},

		// InsecureSkipVerify disables Go's built-in verifier because it has
		// no notion of SPIFFE IDs and would not pick up a rotated trust
		// bundle mid-process. VerifyConnection below replaces it with a
		// fresh-bundle chain verification plus SPIFFE-ID policy check; do
		// not delete VerifyConnection and leave this flag set.
		InsecureSkipVerify: true,

		VerifyConnection: func(cs tls.ConnectionState) error {
			roots, err := source.GetRootCAs(context.Background())
			if err != nil {
				return fmt.Errorf("mtls: failed to get trust bundle during verification: %w", err)
			}
			if len(cs.PeerCertificates) == 0 {
				return errors.New("mtls: server presented no certificate")
			}

			serverCert := cs.PeerCertificates[0]
			intermediates := x509.NewCertPool()
			for _, c := range cs.PeerCertificates[1:] {
				intermediates.AddCert(c)
			}

			if _, err := serverCert.Verify(x509.VerifyOptions{
				Roots:         roots,
				Intermediates: intermediates,
				KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
			}); err != nil {
				return fmt.Errorf("mtls: server certificate verification failed: %w", err)
			}

			peer, err := ExtractPeerIdentity(serverCert)
			if err != nil {
				return fmt.Errorf("mtls: server certificate has no valid spiffe id: %w", err)
			}
			if !strings.HasPrefix(peer.SpiffeID.String(), wantPrefix) {
				return fmt.Errorf("mtls: server spiffe id %q is not a member of trust domain %q", peer.SpiffeID.String(), trustDomain.String())
			}
			return nil
		},
	}, nil
}
