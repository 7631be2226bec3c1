package keystore

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
)

// CAMaterial is the CA's signing key and self-signed certificate as loaded
// from or saved to a SecureKeyStore.
type CAMaterial struct {
	Certificate *x509.Certificate
	PrivateKey  *rsa.PrivateKey
}

// SecureKeyStore persists the CA's own key material across restarts. It
// never sees workload private keys.
//
// Error Contract:
//   - LoadCA returns ErrNotFound if no material has been saved yet.
//   - SaveCA overwrites any previously saved material.
//
// Variants: filesystem (dev only, see NewFilesystemStore), orchestrator
// secret manager, dedicated secret store, HSM. Only the filesystem variant
// is implemented here; the others are documented seams, since wiring a real
// secret manager or HSM client is deployment-specific and out of scope for
// this module.
type SecureKeyStore interface {
	LoadCA(ctx context.Context) (CAMaterial, error)
	SaveCA(ctx context.Context, material CAMaterial) error
}
