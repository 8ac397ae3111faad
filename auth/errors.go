package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingToken is returned when a refresh is requested without a refresh token.
	ErrMissingToken = errors.New("refresh token is required")
	// ErrNoSessionReturned is returned when the provider reports success without a session.
	ErrNoSessionReturned = errors.New("provider returned no session")
	// ErrProviderUnavailable wraps transport failures and timeouts talking to the provider.
	// Unlike a rejection, retrying with the same token may succeed.
	ErrProviderUnavailable = errors.New("provider unavailable")
)

// ProviderRejectedError is returned when the provider declines a refresh token,
// typically because it was revoked, expired or already rotated.
type ProviderRejectedError struct {
	Message string
	Err     error
}

func (e *ProviderRejectedError) Error() string { return e.Message }
func (e *ProviderRejectedError) Unwrap() error { return e.Err }

// StoreError wraps a session store failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("session store %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }
