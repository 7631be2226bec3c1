// Package apierror defines the trust core's error taxonomy (kinds, not Go
// types) and maps each kind to an HTTP status and a client-safe JSON body.
// Handlers never write raw crypto or parser error text to a response; they
// wrap the underlying error in a Kind and let this package render it.
package apierror
