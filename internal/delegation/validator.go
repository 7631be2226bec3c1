package delegation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/apierror"
	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/domain"
)

// remoteValidationTimeout bounds every call to the issuer's /auth/validate
// endpoint.
const remoteValidationTimeout = 5 * time.Second

// Result is the outcome of validating a delegation token.
type Result struct {
	Valid       bool
	UserID      string
	Permissions []string
}

// Validator verifies delegation tokens at the point of use. A
// Validator built with NewLocalValidator holds the shared signing key and
// verifies entirely offline; on any failure it reports invalid without
// ever falling back to the remote endpoint, so a validator that knows the
// secret can never be used to probe the issuer as an oracle. A Validator
// built with NewRemoteValidator holds no key and always calls the issuer.
type Validator struct {
	signingKey       []byte // nil for a remote-only validator
	verifierSpiffeID domain.SpiffeID
	issuerURL        string
	httpClient       *http.Client
}

// NewLocalValidator builds a Validator that verifies delegation tokens
// offline using signingKey, checking aud against verifierSpiffeID.
func NewLocalValidator(verifierSpiffeID domain.SpiffeID, signingKey []byte) (*Validator, error) {
	if len(signingKey) == 0 {
		return nil, apierror.New(apierror.ConfigError, "local validator requires a signing key", nil)
	}
	return &Validator{signingKey: signingKey, verifierSpiffeID: verifierSpiffeID}, nil
}

// NewRemoteValidator builds a Validator with no signing key: every call to
// Validate is forwarded to the issuer's /auth/validate endpoint.
func NewRemoteValidator(verifierSpiffeID domain.SpiffeID, issuerURL string, httpClient *http.Client) *Validator {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Validator{verifierSpiffeID: verifierSpiffeID, issuerURL: issuerURL, httpClient: httpClient}
}

// Validate verifies tokenString and checks that its audience names the
// verifier's own SPIFFE ID.
func (v *Validator) Validate(ctx context.Context, tokenString string) (Result, error) {
	if tokenString == "" {
		return Result{}, apierror.New(apierror.TokenInvalid, "token is required", ErrInvalidToken)
	}
	if v.signingKey != nil {
		return v.validateLocal(tokenString)
	}
	return v.validateRemote(ctx, tokenString)
}

func (v *Validator) validateLocal(tokenString string) (Result, error) {
	claims, err := verifyDelegationToken(tokenString, v.signingKey)
	if err != nil {
		return Result{}, apierror.New(apierror.TokenInvalid, "delegation token is invalid", err)
	}
	if !audienceContains(claims.Audience, v.verifierSpiffeID.String()) {
		return Result{}, apierror.New(apierror.TokenInvalid, "delegation token audience mismatch", ErrAudienceMismatch)
	}
	return Result{Valid: true, UserID: claims.UserID, Permissions: claims.Permissions}, nil
}

func (v *Validator) validateRemote(ctx context.Context, tokenString string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, remoteValidationTimeout)
	defer cancel()

	body, err := json.Marshal(validateRequest{Token: tokenString})
	if err != nil {
		return Result{}, apierror.New(apierror.TokenInvalid, "failed to encode validation request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.issuerURL+"/auth/validate", bytes.NewReader(body))
	if err != nil {
		return Result{}, apierror.New(apierror.TokenInvalid, "failed to build validation request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return Result{}, apierror.New(apierror.TokenInvalid, "remote validation request failed", err)
	}
	defer resp.Body.Close()

	var out validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{}, apierror.New(apierror.TokenInvalid, "failed to decode validation response", err)
	}
	if !out.Valid || out.Token == nil {
		return Result{}, apierror.New(apierror.TokenInvalid, "delegation token is invalid", errors.New(out.Error))
	}
	if !audienceContains(out.Token.Audience, v.verifierSpiffeID.String()) {
		return Result{}, apierror.New(apierror.TokenInvalid, "delegation token audience mismatch", ErrAudienceMismatch)
	}
	return Result{Valid: true, UserID: out.Token.UserID, Permissions: out.Token.Permissions}, nil
}

func audienceContains(aud []string, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}
