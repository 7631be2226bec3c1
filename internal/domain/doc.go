// Package domain holds the pure value types shared by every trust-core
// component: trust domains, SPIFFE IDs, and the X.509 SVID bundle. Nothing
// in this package performs I/O or holds mutable state; it only models the
// shapes defined in the data model.
package domain
