package config

// FileConfig is the on-disk YAML shape for a trust core process. Every
// field is optional in the file; Resolve fills in defaults and validates
// the result into a Config.
type FileConfig struct {
	TrustDomain    string `yaml:"trust_domain"`
	WorkloadAPIURL string `yaml:"workload_api_url"`
	ServiceName    string `yaml:"service_name"`

	// AttestationToken is the static secret used by the dev attestation
	// scheme. Prefer the ATTESTATION_TOKEN environment variable over
	// committing it to this file.
	AttestationToken string `yaml:"attestation_token"`

	// DelegationSigningKey is a base64-encoded symmetric secret for
	// HS256/HS512. Prefer the DELEGATION_SIGNING_KEY environment variable
	// over committing it to this file.
	DelegationSigningKey string `yaml:"delegation_signing_key"`

	DefaultCertificateTTLSeconds int     `yaml:"default_certificate_ttl_seconds"`
	RotationFraction             float64 `yaml:"rotation_fraction"`
	DefaultDelegationTTLSeconds  int     `yaml:"default_delegation_ttl_seconds"`
	MTLSPort                     int     `yaml:"mtls_port"`

	// HTTPPort is the plain HTTP port used by the Auth Filter path, kept
	// distinct from the mTLS listener port.
	HTTPPort int `yaml:"http_port"`

	// KeyStoreDir is where the CA Core's filesystem SecureKeyStore persists
	// its root key pair across restarts.
	KeyStoreDir string `yaml:"key_store_dir"`
}
