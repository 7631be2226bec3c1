package ca

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"net/url"
	"sync"
	"time"

	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/apierror"
	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/domain"
	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/keystore"
)

const (
	caKeyBits   = 2048
	caValidity  = 365 * 24 * time.Hour
	serialBits  = 63
	defaultTTL  = time.Hour
)

// maxSerial is the exclusive upper bound for the 63-bit random serial
// numbers issued to workload leaf certificates.
var maxSerial = new(big.Int).Lsh(big.NewInt(1), serialBits)

// CA is the CA Core. It owns the trust domain's root key pair, loaded from
// or created in a SecureKeyStore on first boot, and signs workload leaf
// certificates against it.
//
// All reads of the CA's own cert/key happen under an RWMutex so that
// concurrent issuance never races against a re-init.
type CA struct {
	trustDomain domain.TrustDomain
	store       keystore.SecureKeyStore
	leafTTL     time.Duration

	mu   sync.RWMutex
	cert *x509.Certificate
	key  *rsa.PrivateKey
}

// New constructs a CA Core for the given trust domain, backed by store.
// leafTTL is the fixed validity window applied to every issued certificate,
// equal across all issuances; pass 0 for the one-hour default.
func New(trustDomain domain.TrustDomain, store keystore.SecureKeyStore, leafTTL time.Duration) *CA {
	if leafTTL <= 0 {
		leafTTL = defaultTTL
	}
	return &CA{trustDomain: trustDomain, store: store, leafTTL: leafTTL}
}

// Init loads the CA's root key pair from the key store, or generates and
// persists a new one if none exists. Idempotent: calling it again after a
// successful Init is a no-op.
func (c *CA) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cert != nil && c.key != nil {
		return nil
	}

	material, err := c.store.LoadCA(ctx)
	switch {
	case err == nil:
		c.cert = material.Certificate
		c.key = material.PrivateKey
		return nil
	case err != keystore.ErrNotFound:
		return apierror.New(apierror.ConfigError, "ca key store is unreadable", err)
	}

	cert, key, err := c.generateRootMaterial()
	if err != nil {
		return apierror.New(apierror.ConfigError, "failed to generate ca root material", err)
	}
	if err := c.store.SaveCA(ctx, keystore.CAMaterial{Certificate: cert, PrivateKey: key}); err != nil {
		return apierror.New(apierror.ConfigError, "failed to persist ca root material", err)
	}

	c.cert = cert
	c.key = key
	return nil
}

func (c *CA) generateRootMaterial() (*x509.Certificate, *rsa.PrivateKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, caKeyBits)
	if err != nil {
		return nil, nil, fmt.Errorf("generate ca key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, maxSerial)
	if err != nil {
		return nil, nil, fmt.Errorf("generate ca serial: %w", err)
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   c.trustDomain.String(),
			Organization: []string{c.trustDomain.String()},
		},
		NotBefore:             now,
		NotAfter:              now.Add(caValidity),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, nil, fmt.Errorf("create ca certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, nil, fmt.Errorf("parse ca certificate: %w", err)
	}
	return cert, key, nil
}

// Issue builds and signs an X.509 v3 leaf certificate for workloadName,
// binding the given public key.
func (c *CA) Issue(ctx context.Context, workloadName string, publicKey *rsa.PublicKey) (*x509.Certificate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.cert == nil || c.key == nil {
		return nil, apierror.New(apierror.ConfigError, "ca has not been initialized", nil)
	}
	if workloadName == "" || publicKey == nil {
		return nil, apierror.New(apierror.SigningError, "workload name and public key are required", nil)
	}

	spiffeID, err := c.trustDomain.IDForWorkload(workloadName)
	if err != nil {
		return nil, apierror.New(apierror.SigningError, "invalid workload name", err)
	}
	uri, err := url.Parse(spiffeID.String())
	if err != nil {
		return nil, apierror.New(apierror.SigningError, "invalid spiffe id", err)
	}

	serial, err := rand.Int(rand.Reader, maxSerial)
	if err != nil {
		return nil, apierror.New(apierror.SigningError, "failed to generate serial", err)
	}
	if serial.Sign() == 0 {
		return nil, apierror.New(apierror.SigningError, "generated zero serial", nil)
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   workloadName,
			Organization: []string{c.trustDomain.String()},
		},
		URIs:                  []*url.URL{uri},
		NotBefore:             now,
		NotAfter:              now.Add(c.leafTTL),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth, x509.ExtKeyUsageServerAuth},
		SignatureAlgorithm:    x509.SHA256WithRSA,
		BasicConstraintsValid: true,
		IsCA:                  false,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, c.cert, publicKey, c.key)
	if err != nil {
		return nil, apierror.New(apierror.SigningError, "failed to sign certificate", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, apierror.New(apierror.SigningError, "failed to parse signed certificate", err)
	}
	return cert, nil
}

// CACertificate returns the CA's own certificate.
func (c *CA) CACertificate() *x509.Certificate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cert
}
