// Package session implements tabula's single-identity login flow and bearer
// token authentication.
//
// Login is a small state machine: validate input, look up the identity,
// bootstrap it on first use, verify the password otherwise, then issue a
// stateless access token. Authenticate runs the full token verification and
// is the only path protected routes use.
//
// Transport (HTTP) integration lives in auth/api.
package session
