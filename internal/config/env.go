package config

import (
	"fmt"
	"os"
	"strconv"
)

// applyEnvOverrides overrides secret-bearing fields with environment
// variables when set, so they need not live in a committed file.
func applyEnvOverrides(cfg *FileConfig) error {
	if v := os.Getenv("TRUST_DOMAIN"); v != "" {
		cfg.TrustDomain = v
	}
	if v := os.Getenv("WORKLOAD_API_URL"); v != "" {
		cfg.WorkloadAPIURL = v
	}
	if v := os.Getenv("SERVICE_NAME"); v != "" {
		cfg.ServiceName = v
	}
	if v := os.Getenv("ATTESTATION_TOKEN"); v != "" {
		cfg.AttestationToken = v
	}
	if v := os.Getenv("DELEGATION_SIGNING_KEY"); v != "" {
		cfg.DelegationSigningKey = v
	}
	if v := os.Getenv("CA_KEYSTORE_DIR"); v != "" {
		cfg.KeyStoreDir = v
	}
	if v := os.Getenv("MTLS_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid MTLS_PORT %q: %w", v, err)
		}
		cfg.MTLSPort = p
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid HTTP_PORT %q: %w", v, err)
		}
		cfg.HTTPPort = p
	}
	return nil
}
