package delegation_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/delegation"
	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/domain"
)

func TestValidator_Local_AcceptsValidToken(t *testing.T) {
	t.Parallel()

	// Arrange
	iss := newTestIssuer(t)
	token, _, err := iss.Mint("user-42", "photo-service", []string{"read:photos"}, 0)
	require.NoError(t, err)
	verifier, err := domain.ParseSpiffeID("spiffe://example.org/photo-service")
	require.NoError(t, err)
	validator, err := delegation.NewLocalValidator(verifier, testSigningKey)
	require.NoError(t, err)

	// Act
	result, err := validator.Validate(context.Background(), token)

	// Assert
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, "user-42", result.UserID)
	assert.Equal(t, []string{"read:photos"}, result.Permissions)
}

func TestValidator_Local_RejectsAudienceMismatch(t *testing.T) {
	t.Parallel()

	// Arrange: token is scoped to photo-service, but print-service verifies it.
	iss := newTestIssuer(t)
	token, _, err := iss.Mint("user-42", "photo-service", []string{"read:photos"}, 0)
	require.NoError(t, err)
	verifier, err := domain.ParseSpiffeID("spiffe://example.org/print-service")
	require.NoError(t, err)
	validator, err := delegation.NewLocalValidator(verifier, testSigningKey)
	require.NoError(t, err)

	// Act
	result, err := validator.Validate(context.Background(), token)

	// Assert
	require.Error(t, err)
	assert.False(t, result.Valid)
	assert.ErrorIs(t, err, delegation.ErrAudienceMismatch)
}

func TestValidator_Local_RejectsTamperedToken_WithoutRemoteFallback(t *testing.T) {
	t.Parallel()

	// Arrange: no remote issuer is reachable at all; if the local validator
	// ever fell back to remote on a failed local check, this would hang or
	// error for the wrong reason instead of failing fast as TokenInvalid.
	iss := newTestIssuer(t)
	token, _, err := iss.Mint("user-42", "photo-service", []string{"read:photos"}, 0)
	require.NoError(t, err)
	verifier, err := domain.ParseSpiffeID("spiffe://example.org/photo-service")
	require.NoError(t, err)
	validator, err := delegation.NewLocalValidator(verifier, testSigningKey)
	require.NoError(t, err)

	// Act
	_, err = validator.Validate(context.Background(), token+"tampered")

	// Assert
	require.Error(t, err)
}

func TestValidator_Remote_MatchesLocalOutcome(t *testing.T) {
	t.Parallel()

	// Arrange: an issuer hosting /auth/validate, and a remote validator
	// pointed at it. Local and remote validation must agree for the same
	// token.
	iss := newTestIssuer(t)
	handlers := delegation.NewHandlers(iss, nil)
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/validate", handlers.Validate)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	token, _, err := iss.Mint("user-42", "photo-service", []string{"read:photos"}, 0)
	require.NoError(t, err)
	verifier, err := domain.ParseSpiffeID("spiffe://example.org/photo-service")
	require.NoError(t, err)

	localValidator, err := delegation.NewLocalValidator(verifier, testSigningKey)
	require.NoError(t, err)
	remoteValidator := delegation.NewRemoteValidator(verifier, srv.URL, &http.Client{Timeout: 2 * time.Second})

	// Act
	localResult, localErr := localValidator.Validate(context.Background(), token)
	remoteResult, remoteErr := remoteValidator.Validate(context.Background(), token)

	// Assert
	require.NoError(t, localErr)
	require.NoError(t, remoteErr)
	assert.Equal(t, localResult, remoteResult)
}

func TestValidator_Remote_RejectsInvalidToken(t *testing.T) {
	t.Parallel()

	// Arrange
	iss := newTestIssuer(t)
	handlers := delegation.NewHandlers(iss, nil)
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/validate", handlers.Validate)
	srv := httptest.NewServer(mux)
	defer srv.Close()
	verifier, err := domain.ParseSpiffeID("spiffe://example.org/photo-service")
	require.NoError(t, err)
	remoteValidator := delegation.NewRemoteValidator(verifier, srv.URL, nil)

	// Act
	_, err = remoteValidator.Validate(context.Background(), "not-a-real-token")

	// Assert
	require.Error(t, err)
}
