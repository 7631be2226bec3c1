package authfilter

import (
	"context"

	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/domain"
)

// AuthContext is the per-request authentication record: built by Middleware
// at request entry and bound only to that request's context, never shared
// across requests.
type AuthContext struct {
	UserID              string
	Permissions         []string
	PeerServiceIdentity *domain.SpiffeID // nil unless the connection was mTLS
	RawToken            string
}

// HasAnyPermission reports whether the context grants at least one of the
// given permissions.
func (a AuthContext) HasAnyPermission(required ...string) bool {
	for _, want := range required {
		for _, have := range a.Permissions {
			if have == want {
				return true
			}
		}
	}
	return false
}

type contextKey int

const authContextKey contextKey = iota

func withAuthContext(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, ac)
}

// FromContext retrieves the AuthContext attached by Middleware, if any.
func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(authContextKey).(AuthContext)
	return ac, ok
}
