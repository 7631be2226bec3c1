package keystore

import "errors"

var (
	// ErrNotFound indicates no CA material has been saved yet.
	ErrNotFound = errors.New("keystore: no ca material found")

	// ErrDevVariantDisabled indicates the filesystem variant was constructed
	// without its dev build guard satisfied.
	ErrDevVariantDisabled = errors.New("keystore: filesystem variant is dev-only")
)
