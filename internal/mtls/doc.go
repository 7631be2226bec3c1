// Package mtls builds client and server TLS configuration from a live
// CertSource (the Identity Agent in production), so peer-to-peer calls
// always present the current SVID and verify the peer against the current
// CA chain, with rotation taking effect without a restart.
package mtls
