package oauth2

import "errors"

var (
	// ErrUnauthenticated means no usable credential exists. It is never
	// retried internally and must surface to the user.
	ErrUnauthenticated = errors.New("not authenticated: run login first")

	ErrNoRefreshToken = errors.New("no refresh token available")
)
