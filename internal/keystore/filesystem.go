//go:build dev

// SECURITY NOTE:
// The filesystem SecureKeyStore is for local development only. Production
// deployments must use an orchestrator secret manager, dedicated secret
// store, or HSM. This file cannot compile without the 'dev'
// build tag, which prevents accidental inclusion in production builds.

package keystore

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
)

const (
	caCertFileName = "ca_cert.pem"
	caKeyFileName  = "ca_key.pem"
	caKeyFileMode  = 0o600
	caCertFileMode = 0o644
	caDirMode      = 0o700
)

// FilesystemStore persists CA material as PEM files in a directory on disk.
// It is a dev-only convenience; it must never be wired into a production
// build (enforced by the 'dev' build tag on this file).
type FilesystemStore struct {
	dir string
}

// NewFilesystemStore returns a FilesystemStore rooted at dir. The directory
// is created with restrictive permissions if it does not already exist.
func NewFilesystemStore(dir string) (*FilesystemStore, error) {
	if !devBuildGuard() {
		return nil, ErrDevVariantDisabled
	}
	if dir == "" {
		return nil, fmt.Errorf("keystore: directory is required")
	}
	if err := os.MkdirAll(dir, caDirMode); err != nil {
		return nil, fmt.Errorf("keystore: create directory: %w", err)
	}
	return &FilesystemStore{dir: dir}, nil
}

// LoadCA reads the CA certificate and key from disk.
func (s *FilesystemStore) LoadCA(ctx context.Context) (CAMaterial, error) {
	certPath := filepath.Join(s.dir, caCertFileName)
	keyPath := filepath.Join(s.dir, caKeyFileName)

	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		if os.IsNotExist(err) {
			return CAMaterial{}, ErrNotFound
		}
		return CAMaterial{}, fmt.Errorf("keystore: read ca cert: %w", err)
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		if os.IsNotExist(err) {
			return CAMaterial{}, ErrNotFound
		}
		return CAMaterial{}, fmt.Errorf("keystore: read ca key: %w", err)
	}

	certBlock, _ := pem.Decode(certPEM)
	if certBlock == nil {
		return CAMaterial{}, fmt.Errorf("keystore: %s is not valid PEM", caCertFileName)
	}
	cert, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		return CAMaterial{}, fmt.Errorf("keystore: parse ca cert: %w", err)
	}

	keyBlock, _ := pem.Decode(keyPEM)
	if keyBlock == nil {
		return CAMaterial{}, fmt.Errorf("keystore: %s is not valid PEM", caKeyFileName)
	}
	key, err := x509.ParsePKCS1PrivateKey(keyBlock.Bytes)
	if err != nil {
		return CAMaterial{}, fmt.Errorf("keystore: parse ca key: %w", err)
	}

	return CAMaterial{Certificate: cert, PrivateKey: key}, nil
}

// SaveCA writes the CA certificate and key to disk, overwriting any
// previously saved material.
func (s *FilesystemStore) SaveCA(ctx context.Context, material CAMaterial) error {
	if material.Certificate == nil || material.PrivateKey == nil {
		return fmt.Errorf("keystore: certificate and private key are required")
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: material.Certificate.Raw})
	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(material.PrivateKey),
	})

	if err := os.WriteFile(filepath.Join(s.dir, caCertFileName), certPEM, caCertFileMode); err != nil {
		return fmt.Errorf("keystore: write ca cert: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, caKeyFileName), keyPEM, caKeyFileMode); err != nil {
		return fmt.Errorf("keystore: write ca key: %w", err)
	}
	return nil
}

var _ SecureKeyStore = (*FilesystemStore)(nil)

// devBuildGuard reports whether the dev-only filesystem variant may be
// constructed. This file only compiles under the 'dev' build tag, so it
// always returns true here.
func devBuildGuard() bool {
	return true
}
