package errors

import (
	"errors"
	"fmt"
)

// Error classes for sign-in and scheduling
var (
	// Sign-in errors
	ErrMissingCode       = errors.New("missing auth code")
	ErrInvalidState      = errors.New("invalid state parameter")
	ErrAuthExchange      = errors.New("provider auth failed")
	ErrForbiddenIdentity = errors.New("account is not allowed")

	// Session errors
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrSessionNotFound  = errors.New("session not found")

	// Scheduling errors
	ErrInvalidRequest    = errors.New("invalid request")
	ErrPermissionRevoked = errors.New("calendar permission revoked")
	ErrProvider          = errors.New("provider request failed")
	ErrCooldown          = errors.New("cooldown active")
)

// InvalidRequestError names the request field that failed validation.
type InvalidRequestError struct {
	Field  string
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidRequestError) Is(target error) bool { return target == ErrInvalidRequest }

// AuthExchangeError carries the provider's message for a failed code exchange
// or identity lookup.
type AuthExchangeError struct {
	Message string
}

func (e *AuthExchangeError) Error() string {
	return "provider auth failed: " + e.Message
}

func (e *AuthExchangeError) Is(target error) bool { return target == ErrAuthExchange }

// ProviderError carries the underlying message of a failed provider call.
type ProviderError struct {
	Message string
}

func (e *ProviderError) Error() string {
	return "failed to create event: " + e.Message
}

func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

// CooldownError reports how long the caller still has to wait.
type CooldownError struct {
	SecondsLeft int
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("please wait %ds before creating another event", e.SecondsLeft)
}

func (e *CooldownError) Is(target error) bool { return target == ErrCooldown }

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// New is errors.New, re-exported so callers need a single errors import
func New(text string) error {
	return errors.New(text)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
