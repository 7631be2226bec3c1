// Package userauth is a minimal external-user-auth shell, a neighboring
// collaborator rather than part of the trust core proper: it registers
// and authenticates end users and, on successful
// login, mints the User Session Token that the Delegation
// Issuer's /auth/delegate endpoint requires as a bearer credential.
package userauth
