// Package delegation implements the Delegation Token Service: minting
// audience-scoped, permission-bearing bearer tokens that let
// a workload act on behalf of an authenticated end-user, and verifying
// them: locally when a shared secret is known, otherwise via the issuer's
// remote /auth/validate endpoint.
//
// Tokens cannot be revoked: a minted token is accepted until its exp claim
// passes, so its exposure is bounded by the issuer's TTL cap. Replacing the
// shared signing key makes every outstanding token fail verification.
package delegation
