package delegation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/apierror"
	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/delegation"
	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/domain"
)

var testSigningKey = []byte("0123456789abcdef0123456789abcdef")

func newTestIssuer(t *testing.T) *delegation.Issuer {
	t.Helper()
	td, err := domain.NewTrustDomain("example.org")
	require.NoError(t, err)
	iss, err := delegation.NewIssuer(td, "user-service", testSigningKey, 15*time.Minute, time.Hour)
	require.NoError(t, err)
	return iss
}

func TestIssuer_Mint_SetsIssSubToIssuerIdentity(t *testing.T) {
	t.Parallel()

	// Arrange
	iss := newTestIssuer(t)

	// Act
	token, expiresIn, err := iss.Mint("user-42", "photo-service", []string{"read:photos"}, 0)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, expiresIn)
	claims, err := iss.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "spiffe://example.org/user-service", claims.Issuer)
	assert.Equal(t, "spiffe://example.org/user-service", claims.Subject)
	assert.Equal(t, []string{"spiffe://example.org/photo-service"}, []string(claims.Audience))
	assert.Equal(t, "user-42", claims.UserID)
	assert.Equal(t, []string{"read:photos"}, claims.Permissions)
}

func TestIssuer_Mint_RejectsEmptyPermissions(t *testing.T) {
	t.Parallel()

	// Arrange
	iss := newTestIssuer(t)

	// Act
	_, _, err := iss.Mint("user-42", "photo-service", nil, 0)

	// Assert
	require.Error(t, err)
	var apiErr *apierror.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierror.InvalidRequest, apiErr.Kind)
}

func TestIssuer_Mint_ClampsTTLToMax(t *testing.T) {
	t.Parallel()

	// Arrange
	iss := newTestIssuer(t)

	// Act
	_, expiresIn, err := iss.Mint("user-42", "photo-service", []string{"read:photos"}, 10*time.Hour)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, time.Hour, expiresIn)
}

func TestIssuer_Verify_RejectsTamperedToken(t *testing.T) {
	t.Parallel()

	// Arrange
	iss := newTestIssuer(t)
	token, _, err := iss.Mint("user-42", "photo-service", []string{"read:photos"}, 0)
	require.NoError(t, err)

	// Act
	_, err = iss.Verify(token + "tampered")

	// Assert
	require.Error(t, err)
	assert.ErrorIs(t, err, delegation.ErrInvalidToken)
}

func TestIssuer_Verify_RejectsForeignSigningKey(t *testing.T) {
	t.Parallel()

	// Arrange
	td, err := domain.NewTrustDomain("example.org")
	require.NoError(t, err)
	attacker, err := delegation.NewIssuer(td, "user-service", []byte("different-key-different-key-123"), 15*time.Minute, time.Hour)
	require.NoError(t, err)
	forged, _, err := attacker.Mint("user-42", "photo-service", []string{"read:photos"}, 0)
	require.NoError(t, err)
	honest := newTestIssuer(t)

	// Act
	_, err = honest.Verify(forged)

	// Assert
	require.Error(t, err)
	assert.ErrorIs(t, err, delegation.ErrInvalidToken)
}

func TestUserSessionToken_RoundTrips(t *testing.T) {
	t.Parallel()

	// Act
	token, err := delegation.SignUserSessionToken(testSigningKey, "user-42", 15*time.Minute)
	require.NoError(t, err)
	userID, err := delegation.ParseUserSessionToken(token, testSigningKey)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)
}
