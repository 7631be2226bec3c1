package delegation

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/apierror"
	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/domain"
)

// Issuer mints and verifies delegation tokens on behalf of authenticated
// users.
type Issuer struct {
	trustDomain    domain.TrustDomain
	issuerSpiffeID domain.SpiffeID
	signingKey     []byte
	defaultTTL     time.Duration
	maxTTL         time.Duration
}

// NewIssuer builds an Issuer whose own SPIFFE ID, used as both iss and sub
// on every token it mints, is trustDomain/issuerServiceName.
func NewIssuer(trustDomain domain.TrustDomain, issuerServiceName string, signingKey []byte, defaultTTL, maxTTL time.Duration) (*Issuer, error) {
	if len(signingKey) == 0 {
		return nil, apierror.New(apierror.ConfigError, "delegation issuer requires a signing key", nil)
	}
	id, err := trustDomain.IDForWorkload(issuerServiceName)
	if err != nil {
		return nil, apierror.New(apierror.ConfigError, "invalid issuer service name", err)
	}
	return &Issuer{
		trustDomain:    trustDomain,
		issuerSpiffeID: id,
		signingKey:     signingKey,
		defaultTTL:     defaultTTL,
		maxTTL:         maxTTL,
	}, nil
}

// Mint builds and signs a delegation token letting userID act against
// targetServiceName with permissions. An empty permissions set is
// rejected rather than silently defaulted. ttl of zero uses the issuer's
// default; ttl beyond the issuer's max is clamped down to it.
func (iss *Issuer) Mint(userID, targetServiceName string, permissions []string, ttl time.Duration) (token string, expiresIn time.Duration, err error) {
	if userID == "" || targetServiceName == "" {
		return "", 0, apierror.New(apierror.InvalidRequest, "user id and target service are required", nil)
	}
	if len(permissions) == 0 {
		return "", 0, apierror.New(apierror.InvalidRequest, "permissions must not be empty", nil)
	}
	if ttl <= 0 {
		ttl = iss.defaultTTL
	}
	if ttl > iss.maxTTL {
		ttl = iss.maxTTL
	}

	aud, err := iss.trustDomain.IDForWorkload(targetServiceName)
	if err != nil {
		return "", 0, apierror.New(apierror.InvalidRequest, "invalid target service name", err)
	}

	now := time.Now()
	claims := DelegationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    iss.issuerSpiffeID.String(),
			Subject:   iss.issuerSpiffeID.String(),
			Audience:  jwt.ClaimStrings{aud.String()},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:      userID,
		Permissions: permissions,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(iss.signingKey)
	if err != nil {
		return "", 0, apierror.New(apierror.SigningError, "failed to sign delegation token", err)
	}
	return signed, ttl, nil
}

// Verify parses and validates a delegation token's signature and expiry.
// It does not check audience; callers compare aud against their own
// verifying identity (Validator.validateLocal does this directly; the
// /auth/validate handler returns aud unchecked and the remote Validator
// checks it).
func (iss *Issuer) Verify(tokenString string) (DelegationClaims, error) {
	return verifyDelegationToken(tokenString, iss.signingKey)
}

// ValidateUserSessionToken verifies a bearer user session token minted by
// the user-auth shell and returns the authenticated user id. The issuer
// uses the same shared signing key for both token kinds, matching the
// single delegation_signing_key configuration entry.
func (iss *Issuer) ValidateUserSessionToken(tokenString string) (string, error) {
	return ParseUserSessionToken(tokenString, iss.signingKey)
}
