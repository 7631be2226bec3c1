// Package workloadapi serves the Workload API HTTP surface: attestation,
// certificate issuance, and a health check. It wires internal/attestation's
// Registry and internal/ca's CA behind a github.com/go-chi/chi/v5 router.
package workloadapi
