// Package attestation implements the Attestation Registry: it decides
// whether a claimant is who it says it is, and mints short-lived tickets
// that bind a successfully attested workload name to a certificate-fetch
// right.
package attestation
