// Package keystore abstracts where the CA's signing key and certificate are
// persisted between process restarts. This is the CA's own long-lived key
// material only; workload private keys are never persisted anywhere and
// never pass through this package.
package keystore
