package identityagent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/apierror"
	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/domain"
	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/wireapi"
)

// workloadAPITimeout bounds every individual Workload API call.
const workloadAPITimeout = 10 * time.Second

// workloadAPIClient is the HTTP client side of the attest/certificates wire
// contract defined in internal/wireapi. It holds no identity state of its
// own; Agent owns the attest-then-fetch sequencing and rotation schedule.
type workloadAPIClient struct {
	baseURL    string
	httpClient *http.Client
}

func newWorkloadAPIClient(baseURL string, httpClient *http.Client) *workloadAPIClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &workloadAPIClient{baseURL: baseURL, httpClient: httpClient}
}

// attest calls POST /workload/v1/attest and returns the redemption ticket.
func (c *workloadAPIClient) attest(ctx context.Context, serviceName string, proof map[string]string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, workloadAPITimeout)
	defer cancel()

	body, err := json.Marshal(wireapi.AttestRequest{ServiceName: serviceName, AttestationProof: proof})
	if err != nil {
		return "", fmt.Errorf("identityagent: encode attest request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/workload/v1/attest", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("identityagent: build attest request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("identityagent: attest request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apierror.New(apierror.AttestationDenied, fmt.Sprintf("attestation rejected with status %d", resp.StatusCode), nil)
	}

	var out wireapi.AttestResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("identityagent: decode attest response: %w", err)
	}
	return out.Token, nil
}

// fetchCertificates calls GET /workload/v1/certificates with the redeemed
// ticket and decodes the returned bundle.
func (c *workloadAPIClient) fetchCertificates(ctx context.Context, serviceName, ticket string) (domain.Bundle, error) {
	ctx, cancel := context.WithTimeout(ctx, workloadAPITimeout)
	defer cancel()

	reqURL := c.baseURL + "/workload/v1/certificates?service_name=" + url.QueryEscape(serviceName)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return domain.Bundle{}, fmt.Errorf("identityagent: build certificates request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+ticket)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Bundle{}, fmt.Errorf("identityagent: certificates request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Bundle{}, apierror.New(apierror.TicketInvalid, fmt.Sprintf("certificate fetch rejected with status %d", resp.StatusCode), nil)
	}

	var out wireapi.CertificatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.Bundle{}, fmt.Errorf("identityagent: decode certificates response: %w", err)
	}
	return wireapi.DecodeBundle(out)
}
