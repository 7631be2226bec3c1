package delegation

import "github.com/golang-jwt/jwt/v5"

// DelegationClaims is the claim set carried by a delegation token:
// iss = sub = the issuer's own SPIFFE ID, aud = the
// target workload's SPIFFE ID, with the actual end user named separately
// in UserID rather than in sub.
type DelegationClaims struct {
	jwt.RegisteredClaims
	UserID      string   `json:"user_id"`
	Permissions []string `json:"permissions"`
}

// UserSessionClaims is the claim set carried by a user session token:
// same shape as a delegation token but sub = the
// user id and no audience. Used only by the user-auth shell to protect the
// delegation endpoint.
type UserSessionClaims struct {
	jwt.RegisteredClaims
}
