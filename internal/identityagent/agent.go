package identityagent

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/apierror"
	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/domain"
)

const (
	// defaultRotationFraction is when, as a fraction of TTL since issuance,
	// the agent schedules its next proactive rotation. Current forces a
	// synchronous refresh once the held bundle enters the remaining
	// 1 - fraction of its TTL.
	defaultRotationFraction = 0.8

	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 30 * time.Second

	maxBootstrapAttempts = 5
)

// Config configures an Agent.
type Config struct {
	// WorkloadAPIURL is the base URL of the Workload API (e.g.
	// "https://workload-api.internal:8443").
	WorkloadAPIURL string

	// ServiceName identifies this workload to the Workload API.
	ServiceName string

	// AttestationProof is forwarded verbatim in the attest request body.
	AttestationProof map[string]string

	// RotationFraction overrides when, as a fraction of TTL since issuance,
	// the agent rotates. Zero, or any value outside (0, 1), falls back to
	// the 0.8 default.
	RotationFraction float64

	// HTTPClient is the client used to talk to the Workload API. A client
	// with no timeout configured is fine: every call is independently
	// bounded by workloadAPITimeout.
	HTTPClient *http.Client

	// Logger receives rotation and bootstrap diagnostics. Defaults to
	// slog.Default() if nil.
	Logger *slog.Logger
}

// Agent is the Identity Agent: it attests once at startup,
// holds the resulting bundle in memory, and rotates it proactively before
// expiry. It implements internal/mtls.CertSource, so any mTLS config built
// from an Agent picks up rotated identity without restart.
type Agent struct {
	cfg              Config
	client           *workloadAPIClient
	logger           *slog.Logger
	rotationFraction float64

	bundle atomic.Pointer[domain.Bundle]

	refreshMu sync.Mutex // serializes concurrent synchronous refreshes

	mu      sync.Mutex // guards cancel/started below
	cancel  context.CancelFunc
	started bool
}

// New constructs an Agent. Start performs the initial bootstrap (with
// retries) and arms background rotation; a Current call made before Start
// fetches a bundle on demand, without retries.
func New(cfg Config) *Agent {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	fraction := cfg.RotationFraction
	if fraction <= 0 || fraction >= 1 {
		fraction = defaultRotationFraction
	}
	return &Agent{
		cfg:              cfg,
		client:           newWorkloadAPIClient(cfg.WorkloadAPIURL, cfg.HTTPClient),
		logger:           logger,
		rotationFraction: fraction,
	}
}

// Start blocks until an initial bundle is obtained (retrying with bounded,
// capped backoff) or returns a BootstrapError once the retry budget is
// exhausted. On success it arms the background rotation
// loop and returns immediately.
func (a *Agent) Start(ctx context.Context) error {
	bundle, err := a.bootstrapWithRetry(ctx)
	if err != nil {
		return apierror.New(apierror.BootstrapError, "identity agent failed to obtain an initial bundle", err)
	}
	a.bundle.Store(&bundle)

	rotateCtx, cancel := context.WithCancel(context.Background())
	a.mu.Lock()
	a.cancel = cancel
	a.started = true
	a.mu.Unlock()

	go a.rotateLoop(rotateCtx)
	return nil
}

// Stop cancels the background rotation loop and best-effort zeroizes the
// held private key.
func (a *Agent) Stop() {
	a.mu.Lock()
	cancel := a.cancel
	a.started = false
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if b := a.bundle.Swap(nil); b != nil {
		b.Zeroize()
	}
}

// Current returns the currently held bundle, synchronously refreshing it
// first if none is held or the held one has entered its final pre-rotation
// window. It never returns an expired bundle.
func (a *Agent) Current(ctx context.Context) (domain.Bundle, error) {
	threshold := 1 - a.rotationFraction

	now := time.Now()
	if b := a.bundle.Load(); b != nil && b.IsValidAt(now) && b.RemainingFraction(now) > threshold {
		return *b, nil
	}

	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()

	// Re-check: another caller may have refreshed while we waited for the lock.
	now = time.Now()
	if b := a.bundle.Load(); b != nil && b.IsValidAt(now) && b.RemainingFraction(now) > threshold {
		return *b, nil
	}

	fresh, err := a.fetchBundle(ctx)
	if err != nil {
		if b := a.bundle.Load(); b != nil && b.IsValidAt(time.Now()) {
			a.logger.Warn("refresh failed, serving still-valid held bundle", "service_name", a.cfg.ServiceName, "error", err)
			return *b, nil
		}
		return domain.Bundle{}, apierror.New(apierror.NoIdentity, "no valid identity bundle available", err)
	}
	a.bundle.Store(&fresh)
	return fresh, nil
}

// GetTLSCertificate implements internal/mtls.CertSource.
func (a *Agent) GetTLSCertificate(ctx context.Context) (tls.Certificate, error) {
	bundle, err := a.Current(ctx)
	if err != nil {
		return tls.Certificate{}, err
	}
	return tls.Certificate{
		Certificate: [][]byte{bundle.Certificate.Raw},
		PrivateKey:  bundle.PrivateKey,
		Leaf:        bundle.Certificate,
	}, nil
}

// GetRootCAs implements internal/mtls.CertSource.
func (a *Agent) GetRootCAs(ctx context.Context) (*x509.CertPool, error) {
	bundle, err := a.Current(ctx)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	for _, c := range bundle.CAChain {
		pool.AddCert(c)
	}
	return pool, nil
}

// Close implements internal/mtls.CertSource by stopping the agent.
func (a *Agent) Close() error {
	a.Stop()
	return nil
}

// fetchBundle performs one attest-then-fetch round trip.
func (a *Agent) fetchBundle(ctx context.Context) (domain.Bundle, error) {
	ticket, err := a.client.attest(ctx, a.cfg.ServiceName, a.cfg.AttestationProof)
	if err != nil {
		return domain.Bundle{}, err
	}
	return a.client.fetchCertificates(ctx, a.cfg.ServiceName, ticket)
}

// bootstrapWithRetry retries fetchBundle with exponential backoff (capped
// at maxBackoff) up to maxBootstrapAttempts times.
func (a *Agent) bootstrapWithRetry(ctx context.Context) (domain.Bundle, error) {
	backoff := initialBackoff
	var lastErr error
	for attempt := 1; attempt <= maxBootstrapAttempts; attempt++ {
		bundle, err := a.fetchBundle(ctx)
		if err == nil {
			return bundle, nil
		}
		lastErr = err
		a.logger.Warn("bootstrap attempt failed", "service_name", a.cfg.ServiceName, "attempt", attempt, "error", err)

		if attempt == maxBootstrapAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return domain.Bundle{}, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	return domain.Bundle{}, fmt.Errorf("exhausted %d bootstrap attempts: %w", maxBootstrapAttempts, lastErr)
}

// rotateLoop sleeps until the rotation fraction of the current bundle's TTL
// has elapsed, then refreshes it, retrying failures with capped exponential
// backoff until the context is canceled. The held bundle keeps serving
// traffic while retries are in flight; Current stops returning it only once
// it actually expires.
func (a *Agent) rotateLoop(ctx context.Context) {
	for {
		b := a.bundle.Load()
		if b == nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(a.delayUntilRotation(*b)):
		}

		backoff := initialBackoff
		for {
			fresh, err := a.fetchBundle(ctx)
			if err == nil {
				a.bundle.Store(&fresh)
				break
			}
			a.logger.Error("rotation attempt failed", "service_name", a.cfg.ServiceName, "error", err)
			if held := a.bundle.Load(); held != nil && !held.IsValidAt(time.Now()) {
				a.logger.Error("bundle expired before rotation succeeded", "service_name", a.cfg.ServiceName)
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
}

// delayUntilRotation returns how long to wait before rotating b, never
// negative.
func (a *Agent) delayUntilRotation(b domain.Bundle) time.Duration {
	rotateAt := b.IssuedAt.Add(time.Duration(float64(b.TTL()) * a.rotationFraction))
	delay := time.Until(rotateAt)
	if delay < 0 {
		return 0
	}
	return delay
}
