package delegation

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func hmacKeyFunc(key []byte) jwt.Keyfunc {
	return func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	}
}

func verifyDelegationToken(tokenString string, key []byte) (DelegationClaims, error) {
	var claims DelegationClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, hmacKeyFunc(key))
	if err != nil {
		return DelegationClaims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return DelegationClaims{}, ErrInvalidToken
	}
	return claims, nil
}

// SignUserSessionToken mints a user session token. It is exported so the
// user-auth shell, a separate package, can mint sessions against the same
// shared signing key without importing an Issuer.
func SignUserSessionToken(key []byte, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := UserSessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

// ParseUserSessionToken verifies a user session token and returns its
// subject, the authenticated user id.
func ParseUserSessionToken(tokenString string, key []byte) (string, error) {
	var claims UserSessionClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, hmacKeyFunc(key))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
