package auth

import (
	"errors"
	"fmt"

	"github.com/lumabyte/misspauling/internal/domain/user"
)

var (
	// ErrAuthFailed covers every provider-side verification failure. The
	// cause is logged server-side but never distinguished to the client.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrInvalidToken is returned for any signed token that fails
	// verification, whatever the reason
	ErrInvalidToken = errors.New("invalid token")
)

// ConflictError is returned when a provider identity already belongs to a
// different user and the link was not forced. It carries enough detail for
// the caller to offer a force retry; no mutation has occurred.
type ConflictError struct {
	Provider          user.Provider
	ConflictingUserID uint
	RetryURL          string // set for Steam, where a forced retry is offered
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s account already linked to user %d", e.Provider, e.ConflictingUserID)
}

// Code returns the machine-readable error code for API responses
func (e *ConflictError) Code() string {
	return string(e.Provider) + "_account_already_linked"
}
