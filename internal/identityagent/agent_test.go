package identityagent_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/apierror"
	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/domain"
	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/identityagent"
	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/wireapi"
)

// issueBundle builds a self-signed-CA-backed bundle for serviceName, valid
// from notBefore for ttl.
func issueBundle(t *testing.T, serviceName string, notBefore time.Time, ttl time.Duration) domain.Bundle {
	t.Helper()

	caKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	caTemplate := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "example.org"},
		NotBefore:             notBefore.Add(-24 * time.Hour),
		NotAfter:              notBefore.Add(365 * 24 * time.Hour),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
	}
	caDER, err := x509.CreateCertificate(rand.Reader, caTemplate, caTemplate, &caKey.PublicKey, caKey)
	require.NoError(t, err)
	caCert, err := x509.ParseCertificate(caDER)
	require.NoError(t, err)

	leafKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	uri, err := url.Parse("spiffe://example.org/" + serviceName)
	require.NoError(t, err)
	leafTemplate := &x509.Certificate{
		SerialNumber:          big.NewInt(2),
		Subject:               pkix.Name{CommonName: serviceName},
		NotBefore:             notBefore,
		NotAfter:              notBefore.Add(ttl),
		URIs:                  []*url.URL{uri},
		KeyUsage:              x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}
	leafDER, err := x509.CreateCertificate(rand.Reader, leafTemplate, caTemplate, &leafKey.PublicKey, caKey)
	require.NoError(t, err)
	leafCert, err := x509.ParseCertificate(leafDER)
	require.NoError(t, err)

	id, err := domain.ParseSpiffeID("spiffe://example.org/" + serviceName)
	require.NoError(t, err)

	b, err := domain.NewBundle(id, leafCert, leafKey, []*x509.Certificate{caCert})
	require.NoError(t, err)
	return b
}

// newWorkloadAPIServer fakes the Workload API's attest/certificates pair.
// bundleFn is invoked on every certificates request to decide what to
// return; it may vary its answer across calls to simulate rotation.
func newWorkloadAPIServer(t *testing.T, bundleFn func(serviceName string) (domain.Bundle, error)) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/workload/v1/attest", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(wireapi.AttestResponse{Token: "test-ticket"})
	})
	mux.HandleFunc("/workload/v1/certificates", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-ticket" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		bundle, err := bundleFn(r.URL.Query().Get("service_name"))
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		wire, err := wireapi.EncodeBundle(bundle)
		require.NoError(t, err)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(wire)
	})
	return httptest.NewServer(mux)
}

func TestAgent_StartAndCurrent_HappyPath(t *testing.T) {
	t.Parallel()

	// Arrange
	bundle := issueBundle(t, "photo-service", time.Now(), time.Hour)
	srv := newWorkloadAPIServer(t, func(string) (domain.Bundle, error) { return bundle, nil })
	defer srv.Close()
	agent := identityagent.New(identityagent.Config{WorkloadAPIURL: srv.URL, ServiceName: "photo-service"})

	// Act
	require.NoError(t, agent.Start(context.Background()))
	defer agent.Stop()
	got, err := agent.Current(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, bundle.SpiffeID.String(), got.SpiffeID.String())
}

func TestAgent_Current_RefreshesWhenNearExpiry(t *testing.T) {
	t.Parallel()

	// Arrange: the first certificates response is already within the last
	// 20% of its TTL, so the very first Current call must trigger a
	// synchronous refresh rather than serving it as-is.
	stale := issueBundle(t, "photo-service", time.Now().Add(-900*time.Millisecond), time.Second)
	fresh := issueBundle(t, "photo-service", time.Now(), time.Hour)
	var calls int32
	srv := newWorkloadAPIServer(t, func(string) (domain.Bundle, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return stale, nil
		}
		return fresh, nil
	})
	defer srv.Close()
	agent := identityagent.New(identityagent.Config{WorkloadAPIURL: srv.URL, ServiceName: "photo-service"})
	require.NoError(t, agent.Start(context.Background()))
	defer agent.Stop()

	// Act
	got, err := agent.Current(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Greater(t, got.RemainingFraction(time.Now()), 0.2)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(2))
}

func TestAgent_GetTLSCertificate_ReflectsCurrentBundle(t *testing.T) {
	t.Parallel()

	// Arrange
	bundle := issueBundle(t, "photo-service", time.Now(), time.Hour)
	srv := newWorkloadAPIServer(t, func(string) (domain.Bundle, error) { return bundle, nil })
	defer srv.Close()
	agent := identityagent.New(identityagent.Config{WorkloadAPIURL: srv.URL, ServiceName: "photo-service"})
	require.NoError(t, agent.Start(context.Background()))
	defer agent.Stop()

	// Act
	cert, err := agent.GetTLSCertificate(context.Background())
	roots, rootsErr := agent.GetRootCAs(context.Background())

	// Assert
	require.NoError(t, err)
	require.NoError(t, rootsErr)
	assert.Equal(t, bundle.Certificate.Raw, cert.Certificate[0])
	assert.NotNil(t, roots)
}

func TestAgent_Start_BootstrapFails_ReturnsBootstrapError(t *testing.T) {
	t.Parallel()

	// Arrange: the Workload API is unreachable, so every attest attempt
	// fails; bound the retry loop with a short deadline instead of waiting
	// out the full backoff budget.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	agent := identityagent.New(identityagent.Config{WorkloadAPIURL: srv.URL, ServiceName: "photo-service"})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// Act
	err := agent.Start(ctx)

	// Assert
	require.Error(t, err)
	var apiErr *apierror.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, apierror.BootstrapError, apiErr.Kind)
}

func TestAgent_Start_BootstrapRetry_SucceedsAfterTransientFailure(t *testing.T) {
	t.Parallel()

	// Arrange: the first certificates call fails, the retry succeeds.
	bundle := issueBundle(t, "photo-service", time.Now(), time.Hour)
	var attestCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/workload/v1/attest", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attestCalls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(wireapi.AttestResponse{Token: "test-ticket"})
	})
	mux.HandleFunc("/workload/v1/certificates", func(w http.ResponseWriter, r *http.Request) {
		wire, err := wireapi.EncodeBundle(bundle)
		require.NoError(t, err)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(wire)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	agent := identityagent.New(identityagent.Config{WorkloadAPIURL: srv.URL, ServiceName: "photo-service"})

	// Act
	err := agent.Start(context.Background())
	defer agent.Stop()

	// Assert
	require.NoError(t, err)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&attestCalls), int32(2))
}

func TestAgent_Stop_ClearsHeldBundle(t *testing.T) {
	t.Parallel()

	// Arrange
	bundle := issueBundle(t, "photo-service", time.Now(), time.Hour)
	srv := newWorkloadAPIServer(t, func(string) (domain.Bundle, error) { return bundle, nil })
	agent := identityagent.New(identityagent.Config{WorkloadAPIURL: srv.URL, ServiceName: "photo-service"})
	require.NoError(t, agent.Start(context.Background()))

	// Act: stop the agent and take the Workload API down with it, so the
	// cleared bundle cannot be silently re-fetched.
	agent.Stop()
	srv.Close()
	_, err := agent.Current(context.Background())

	// Assert: with the rotation loop canceled and the bundle cleared,
	// Current must attempt a fresh fetch rather than serve stale state.
	require.Error(t, err)
	var apiErr *apierror.Error
	require.True(t, errors.As(err, &apiErr), fmt.Sprintf("got %T: %v", err, err))
}
