package attestation_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/apierror"
	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/attestation"
	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/domain"
)

func TestStaticSecretScheme_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		tokens  map[string]string
		claimed string
		token   string
		wantErr bool
	}{
		{name: "matching token", tokens: map[string]string{"photo-service": "dev-token-photo-service-12345"}, claimed: "photo-service", token: "dev-token-photo-service-12345", wantErr: false},
		{name: "wrong token", tokens: map[string]string{"photo-service": "correct"}, claimed: "photo-service", token: "wrong", wantErr: true},
		{name: "missing token", tokens: map[string]string{"photo-service": "correct"}, claimed: "photo-service", token: "", wantErr: true},
		{name: "unknown workload", tokens: map[string]string{"photo-service": "correct"}, claimed: "print-service", token: "correct", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Arrange
			scheme := attestation.NewStaticSecretScheme(tt.tokens)
			proof := domain.NewAttestationProof(map[string]string{"token": tt.token})

			// Act
			err := scheme.Validate(context.Background(), tt.claimed, proof)

			// Assert
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, attestation.ErrAttestationDenied)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestRegistry_Attest_Redeem_Success(t *testing.T) {
	t.Parallel()

	// Arrange
	scheme := attestation.NewStaticSecretScheme(map[string]string{"photo-service": "dev-token-photo-service-12345"})
	registry := attestation.NewRegistry(scheme, time.Minute)
	proof := domain.NewAttestationProof(map[string]string{"token": "dev-token-photo-service-12345"})

	// Act
	id, err := registry.Attest(context.Background(), "photo-service", proof)
	require.NoError(t, err)
	ok := registry.Redeem(id, "photo-service")

	// Assert
	assert.NotEmpty(t, id)
	assert.True(t, ok)
}

func TestRegistry_Redeem_SingleUse(t *testing.T) {
	t.Parallel()

	// Arrange
	scheme := attestation.NewStaticSecretScheme(map[string]string{"photo-service": "tok"})
	registry := attestation.NewRegistry(scheme, time.Minute)
	proof := domain.NewAttestationProof(map[string]string{"token": "tok"})
	id, err := registry.Attest(context.Background(), "photo-service", proof)
	require.NoError(t, err)

	// Act
	first := registry.Redeem(id, "photo-service")
	second := registry.Redeem(id, "photo-service")

	// Assert
	assert.True(t, first)
	assert.False(t, second)
}

func TestRegistry_Redeem_MismatchedWorkload(t *testing.T) {
	t.Parallel()

	// Arrange
	scheme := attestation.NewStaticSecretScheme(map[string]string{"photo-service": "tok"})
	registry := attestation.NewRegistry(scheme, time.Minute)
	proof := domain.NewAttestationProof(map[string]string{"token": "tok"})
	id, err := registry.Attest(context.Background(), "photo-service", proof)
	require.NoError(t, err)

	// Act
	ok := registry.Redeem(id, "print-service")

	// Assert
	assert.False(t, ok)
}

func TestRegistry_Redeem_Expired(t *testing.T) {
	t.Parallel()

	// Arrange
	scheme := attestation.NewStaticSecretScheme(map[string]string{"photo-service": "tok"})
	registry := attestation.NewRegistry(scheme, time.Millisecond)
	proof := domain.NewAttestationProof(map[string]string{"token": "tok"})
	id, err := registry.Attest(context.Background(), "photo-service", proof)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	// Act
	ok := registry.Redeem(id, "photo-service")

	// Assert
	assert.False(t, ok)
}

func TestRegistry_Redeem_Unknown(t *testing.T) {
	t.Parallel()

	registry := attestation.NewRegistry(attestation.NewStaticSecretScheme(nil), time.Minute)
	assert.False(t, registry.Redeem("does-not-exist", "photo-service"))
}

func TestRegistry_Attest_DeniedDoesNotIssueTicket(t *testing.T) {
	t.Parallel()

	// Arrange
	scheme := attestation.NewStaticSecretScheme(map[string]string{"photo-service": "tok"})
	registry := attestation.NewRegistry(scheme, time.Minute)
	badProof := domain.NewAttestationProof(map[string]string{"token": "wrong"})

	// Act
	id, err := registry.Attest(context.Background(), "photo-service", badProof)

	// Assert
	require.Error(t, err)
	var apiErr *apierror.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierror.AttestationDenied, apiErr.Kind)
	assert.Empty(t, id)
	assert.False(t, registry.Redeem("", "photo-service"))
}

func TestRegistry_Attest_RejectsEmptyWorkloadName(t *testing.T) {
	t.Parallel()

	registry := attestation.NewRegistry(attestation.NewStaticSecretScheme(nil), time.Minute)
	_, err := registry.Attest(context.Background(), "", domain.NewAttestationProof(nil))
	require.Error(t, err)
}

func TestRegistry_ConcurrentAttestAndRedeem(t *testing.T) {
	t.Parallel()

	// Arrange
	scheme := attestation.NewStaticSecretScheme(map[string]string{"photo-service": "tok"})
	registry := attestation.NewRegistry(scheme, time.Minute)
	proof := domain.NewAttestationProof(map[string]string{"token": "tok"})

	var wg sync.WaitGroup
	results := make([]bool, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := registry.Attest(context.Background(), "photo-service", proof)
			if err != nil {
				return
			}
			results[i] = registry.Redeem(id, "photo-service")
		}(i)
	}
	wg.Wait()

	// Assert
	for _, ok := range results {
		assert.True(t, ok)
	}
}
