package goSession

import "errors"

var (
	// ErrInvalidCredentials is returned by Login when the backend rejects
	// the username/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrStatusUnavailable wraps unexpected (non-401) failures of the
	// identity status query. A 401 is expected data, never this error.
	ErrStatusUnavailable = errors.New("status endpoint unavailable")
	// ErrLoginUnavailable wraps unexpected login transport or server
	// failures that are not a credential rejection.
	ErrLoginUnavailable = errors.New("login endpoint unavailable")
)
