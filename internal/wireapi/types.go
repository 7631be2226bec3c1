package wireapi

import "time"

// AttestRequest is the body of POST /workload/v1/attest.
type AttestRequest struct {
	ServiceName      string            `json:"service_name"`
	AttestationProof map[string]string `json:"attestation_proof"`
}

// AttestResponse is the body returned on a successful attestation.
type AttestResponse struct {
	Token string `json:"token"`
}

// SVID is the PEM-encoded certificate bundle material for a single
// issuance. PrivateKey is PKCS#8 PEM and appears only in
// this one response; it must never be logged.
type SVID struct {
	Certificate string `json:"cert"`
	PrivateKey  string `json:"key"`
	SpiffeID    string `json:"spiffe_id"`
}

// CertificatesResponse is the body of GET /workload/v1/certificates.
type CertificatesResponse struct {
	SVID       SVID      `json:"svid"`
	CACerts    []string  `json:"ca_certs"`
	ExpiresAt  time.Time `json:"expires_at"`
	TTLSeconds int64     `json:"ttl"`
}

// HealthResponse is the body of GET /workload/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}
