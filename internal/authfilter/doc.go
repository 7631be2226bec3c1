// Package authfilter implements the Authentication Filter and Context:
// the per-request enforcement point that validates an
// incoming delegation token, builds a per-request AuthContext from the
// result, and discards it at request exit so no handler ever observes
// another request's authentication state.
package authfilter
