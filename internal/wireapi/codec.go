package wireapi

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/domain"
)

// EncodeBundle renders a domain.Bundle as the wire shape returned by
// GET /workload/v1/certificates.
func EncodeBundle(b domain.Bundle) (CertificatesResponse, error) {
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: b.Certificate.Raw})

	keyDER, err := x509.MarshalPKCS8PrivateKey(b.PrivateKey)
	if err != nil {
		return CertificatesResponse{}, fmt.Errorf("wireapi: marshal private key: %w", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})

	caCerts := make([]string, 0, len(b.CAChain))
	for _, ca := range b.CAChain {
		caCerts = append(caCerts, string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: ca.Raw})))
	}

	return CertificatesResponse{
		SVID: SVID{
			Certificate: string(certPEM),
			PrivateKey:  string(keyPEM),
			SpiffeID:    b.SpiffeID.String(),
		},
		CACerts:    caCerts,
		ExpiresAt:  b.ExpiresAt,
		TTLSeconds: int64(b.TTL().Seconds()),
	}, nil
}

// DecodeBundle parses the wire shape back into a domain.Bundle. It accepts
// both PKCS#8 ("PRIVATE KEY") and PKCS#1 ("RSA PRIVATE KEY") PEM blocks for
// the private key.
func DecodeBundle(resp CertificatesResponse) (domain.Bundle, error) {
	id, err := domain.ParseSpiffeID(resp.SVID.SpiffeID)
	if err != nil {
		return domain.Bundle{}, fmt.Errorf("wireapi: decode spiffe id: %w", err)
	}

	cert, err := decodeCertificate(resp.SVID.Certificate)
	if err != nil {
		return domain.Bundle{}, fmt.Errorf("wireapi: decode leaf certificate: %w", err)
	}

	key, err := decodePrivateKey(resp.SVID.PrivateKey)
	if err != nil {
		return domain.Bundle{}, fmt.Errorf("wireapi: decode private key: %w", err)
	}

	chain := make([]*x509.Certificate, 0, len(resp.CACerts))
	for _, pemStr := range resp.CACerts {
		caCert, err := decodeCertificate(pemStr)
		if err != nil {
			return domain.Bundle{}, fmt.Errorf("wireapi: decode ca certificate: %w", err)
		}
		chain = append(chain, caCert)
	}

	return domain.NewBundle(id, cert, key, chain)
}

func decodeCertificate(pemStr string) (*x509.Certificate, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, fmt.Errorf("not valid PEM")
	}
	return x509.ParseCertificate(block.Bytes)
}

func decodePrivateKey(pemStr string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, fmt.Errorf("not valid PEM")
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	default:
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("private key is not RSA")
		}
		return rsaKey, nil
	}
}
