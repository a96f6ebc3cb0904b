// Package auth verifies credentials, issues signed access tokens and decides
// whether a token grants authenticated or administrator access.
package auth

import "github.com/pkg/errors"

var (
	// ErrInvalidCredentials covers both an unknown username and a wrong
	// password so callers cannot tell which one it was.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUnauthenticated means the token is missing, malformed, expired or
	// not signed by this process.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden means the token is valid but lacks administrator rights.
	ErrForbidden = errors.New("administration rights required")
)
