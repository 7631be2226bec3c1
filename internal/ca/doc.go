// Package ca implements the CA Core: it owns the trust domain's root key
// pair and issues short-lived workload leaf certificates signed by it.
//
// The root certificate is generated with a one-year validity and is never
// rotated or cross-signed by this package; Init reuses stored root
// material without checking its expiry.
package ca
