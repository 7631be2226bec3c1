package workloadapi

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/apierror"
	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/attestation"
	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/ca"
	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/domain"
	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/wireapi"
)

// issuedKeyBits is the size of the RSA key pair the server generates on the
// claimant's behalf for each certificate issuance.
const issuedKeyBits = 2048

// Handlers serves the three Workload API HTTP endpoints.
type Handlers struct {
	registry *attestation.Registry
	ca       *ca.CA
	logger   *slog.Logger
}

// NewHandlers builds Handlers around registry and signingCA.
func NewHandlers(registry *attestation.Registry, signingCA *ca.CA, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{registry: registry, ca: signingCA, logger: logger}
}

// Attest handles POST /workload/v1/attest.
func (h *Handlers) Attest(w http.ResponseWriter, r *http.Request) {
	var req wireapi.AttestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.Respond(w, h.logger, apierror.New(apierror.InvalidRequest, "malformed request body", err))
		return
	}

	proof := domain.NewAttestationProof(req.AttestationProof)
	ticket, err := h.registry.Attest(r.Context(), req.ServiceName, proof)
	if err != nil {
		apierror.Respond(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(wireapi.AttestResponse{Token: ticket})
}

// Certificates handles GET /workload/v1/certificates. The
// caller redeems its attestation ticket via the Authorization bearer header
// and receives a freshly issued SVID; the response's private key must never
// be logged (wireapi.SVID.PrivateKey's contract).
func (h *Handlers) Certificates(w http.ResponseWriter, r *http.Request) {
	serviceName := r.URL.Query().Get("service_name")
	if serviceName == "" {
		apierror.Respond(w, h.logger, apierror.New(apierror.InvalidRequest, "service_name is required", nil))
		return
	}

	ticket, ok := bearerToken(r)
	if !ok {
		apierror.Respond(w, h.logger, apierror.New(apierror.TicketInvalid, "missing bearer ticket", nil))
		return
	}
	if !h.registry.Redeem(ticket, serviceName) {
		apierror.Respond(w, h.logger, apierror.New(apierror.TicketInvalid, "ticket is invalid, expired, or already used", nil))
		return
	}

	key, err := rsa.GenerateKey(rand.Reader, issuedKeyBits)
	if err != nil {
		apierror.Respond(w, h.logger, apierror.New(apierror.SigningError, "failed to generate workload key pair", err))
		return
	}

	cert, err := h.ca.Issue(r.Context(), serviceName, &key.PublicKey)
	if err != nil {
		apierror.Respond(w, h.logger, err)
		return
	}

	spiffeID, err := domain.ParseSpiffeID(cert.URIs[0].String())
	if err != nil {
		apierror.Respond(w, h.logger, apierror.New(apierror.SigningError, "issued certificate carries no valid spiffe id", err))
		return
	}

	bundle, err := domain.NewBundle(spiffeID, cert, key, []*x509.Certificate{h.ca.CACertificate()})
	if err != nil {
		apierror.Respond(w, h.logger, apierror.New(apierror.SigningError, "issued bundle failed validation", err))
		return
	}

	resp, err := wireapi.EncodeBundle(bundle)
	if err != nil {
		apierror.Respond(w, h.logger, apierror.New(apierror.SigningError, "failed to encode issued bundle", err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// Health handles GET /workload/v1/health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(wireapi.HealthResponse{Status: "healthy"})
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", false
	}
	token := strings.TrimPrefix(auth, prefix)
	if token == "" {
		return "", false
	}
	return token, true
}
