// Package auth resolves session credentials into request identities.
package auth

import "errors"

// Authentication errors.
var (
	// ErrSessionStoreUnavailable indicates the session store could not be queried.
	// It is the only hard failure of authentication; unknown credentials are anonymous.
	ErrSessionStoreUnavailable = errors.New("session store unavailable")
)
