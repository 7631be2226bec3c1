package mtls

import "context"

// contextKey is an unexported type to prevent collisions with context keys
// defined by other packages.
type contextKey int

const peerContextKey contextKey = iota

// WithPeer attaches an authenticated peer identity to ctx.
func WithPeer(ctx context.Context, peer PeerIdentity) context.Context {
	return context.WithValue(ctx, peerContextKey, peer)
}

// PeerFromContext retrieves the peer identity attached by WithPeer, if any.
func PeerFromContext(ctx context.Context) (PeerIdentity, bool) {
	if ctx == nil {
		return PeerIdentity{}, false
	}
	peer, ok := ctx.Value(peerContextKey).(PeerIdentity)
	return peer, ok
}
