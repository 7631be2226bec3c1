package config

import (
	"encoding/base64"
	"fmt"
	"time"
)

const (
	defaultTrustDomain           = "example.org"
	defaultWorkloadAPIURL        = "http://localhost:8080"
	defaultCertificateTTLSeconds = 3600
	defaultRotationFraction      = 0.8
	defaultDelegationTTLSeconds  = 900
	maxDelegationTTLSeconds      = 3600
	minDelegationSigningKeyBits  = 256
	defaultKeyStoreDir           = "./var/ca-keystore"
	defaultHTTPPort              = 8082
)

// Config is the validated, defaulted configuration a process builds its
// components from.
type Config struct {
	TrustDomain    string
	WorkloadAPIURL string
	ServiceName    string

	AttestationToken     string
	DelegationSigningKey []byte

	DefaultCertificateTTL time.Duration
	RotationFraction      float64
	DefaultDelegationTTL  time.Duration
	MaxDelegationTTL      time.Duration
	MTLSPort              int
	HTTPPort              int
	KeyStoreDir           string
}

// Resolve applies environment overrides to fc, fills in defaults,
// and validates the result. Returns ConfigError-worthy problems as a plain
// error; callers at process startup are expected to treat any error here
// as fatal.
func Resolve(fc FileConfig) (Config, error) {
	if err := applyEnvOverrides(&fc); err != nil {
		return Config{}, err
	}

	cfg := Config{
		TrustDomain:           fc.TrustDomain,
		WorkloadAPIURL:        fc.WorkloadAPIURL,
		ServiceName:           fc.ServiceName,
		AttestationToken:      fc.AttestationToken,
		DefaultCertificateTTL: time.Duration(fc.DefaultCertificateTTLSeconds) * time.Second,
		RotationFraction:      fc.RotationFraction,
		DefaultDelegationTTL:  time.Duration(fc.DefaultDelegationTTLSeconds) * time.Second,
		MaxDelegationTTL:      maxDelegationTTLSeconds * time.Second,
		MTLSPort:              fc.MTLSPort,
		HTTPPort:              fc.HTTPPort,
		KeyStoreDir:           fc.KeyStoreDir,
	}

	if cfg.TrustDomain == "" {
		cfg.TrustDomain = defaultTrustDomain
	}
	if cfg.HTTPPort == 0 {
		cfg.HTTPPort = defaultHTTPPort
	}
	if cfg.WorkloadAPIURL == "" {
		cfg.WorkloadAPIURL = defaultWorkloadAPIURL
	}
	if cfg.DefaultCertificateTTL == 0 {
		cfg.DefaultCertificateTTL = defaultCertificateTTLSeconds * time.Second
	}
	if cfg.RotationFraction == 0 {
		cfg.RotationFraction = defaultRotationFraction
	}
	if cfg.DefaultDelegationTTL == 0 {
		cfg.DefaultDelegationTTL = defaultDelegationTTLSeconds * time.Second
	}
	if cfg.KeyStoreDir == "" {
		cfg.KeyStoreDir = defaultKeyStoreDir
	}
	if cfg.DefaultDelegationTTL > cfg.MaxDelegationTTL {
		return Config{}, fmt.Errorf("config: default_delegation_ttl_seconds exceeds max of %d", maxDelegationTTLSeconds)
	}
	if cfg.RotationFraction <= 0 || cfg.RotationFraction >= 1 {
		return Config{}, fmt.Errorf("config: rotation_fraction must be in (0, 1)")
	}

	if fc.DelegationSigningKey != "" {
		key, err := base64.StdEncoding.DecodeString(fc.DelegationSigningKey)
		if err != nil {
			return Config{}, fmt.Errorf("config: delegation_signing_key is not valid base64: %w", err)
		}
		if len(key)*8 < minDelegationSigningKeyBits {
			return Config{}, fmt.Errorf("config: delegation_signing_key must be at least %d bits", minDelegationSigningKeyBits)
		}
		cfg.DelegationSigningKey = key
	}

	return cfg, nil
}
