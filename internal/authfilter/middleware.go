package authfilter

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/apierror"
	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/delegation"
	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/mtls"
)

// Validator is the subset of internal/delegation.Validator that Middleware
// depends on, so tests can substitute a double.
type Validator interface {
	Validate(ctx context.Context, token string) (delegation.Result, error)
}

// Middleware enforces authentication at HTTP request entry.
type Middleware struct {
	validator   Validator
	exemptPaths map[string]struct{}
	logger      *slog.Logger
}

// New builds a Middleware. exemptPaths lists request paths (health,
// readiness, root) that bypass authentication entirely. A nil logger
// defaults to slog.Default().
func New(validator Validator, exemptPaths []string, logger *slog.Logger) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	exempt := make(map[string]struct{}, len(exemptPaths))
	for _, p := range exemptPaths {
		exempt[p] = struct{}{}
	}
	return &Middleware{validator: validator, exemptPaths: exempt, logger: logger}
}

// Enforce implements the per-request algorithm: exemption check,
// bearer-token extraction, validation, AuthContext construction, and
// forwarding. The context is bound to this request only; it is never
// stored anywhere that would let a later request observe it.
func (m *Middleware) Enforce(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, exempt := m.exemptPaths[r.URL.Path]; exempt {
			next.ServeHTTP(w, r)
			return
		}

		const bearerPrefix = "Bearer "
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			apierror.Respond(w, m.logger, apierror.New(apierror.TokenInvalid, "missing bearer delegation token", nil))
			return
		}
		rawToken := strings.TrimPrefix(authHeader, bearerPrefix)

		result, err := m.validator.Validate(r.Context(), rawToken)
		if err != nil {
			apierror.Respond(w, m.logger, err)
			return
		}

		ac := AuthContext{
			UserID:      result.UserID,
			Permissions: result.Permissions,
			RawToken:    rawToken,
		}
		if peer, ok := mtls.PeerFromContext(r.Context()); ok {
			id := peer.SpiffeID
			ac.PeerServiceIdentity = &id
		}

		next.ServeHTTP(w, r.WithContext(withAuthContext(r.Context(), ac)))
	})
}

// RequireAnyPermission builds middleware that 403s unless the request's
// AuthContext grants at least one of the given permissions. It must run
// after Enforce, which is what populates the AuthContext.
func RequireAnyPermission(logger *slog.Logger, required ...string) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, ok := FromContext(r.Context())
			if !ok || !ac.HasAnyPermission(required...) {
				apierror.Respond(w, logger, apierror.New(apierror.PermissionDenied, "missing required permission", nil))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
