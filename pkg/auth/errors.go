package auth

import (
	"github.com/pkg/errors"
)

// AuthErrorKind is a reason of a rejected login
type AuthErrorKind int

// Kinds of login failures
const (
	InvalidCredentials AuthErrorKind = iota + 1
	Locked
)

func (k AuthErrorKind) String() string {
	switch k {
	case InvalidCredentials:
		return "InvalidCredentials"
	case Locked:
		return "Locked"
	}
	return "Unknown"
}

// AuthError is returned when login is rejected
type AuthError struct {
	Kind AuthErrorKind
}

func (e *AuthError) Error() string {
	switch e.Kind {
	case InvalidCredentials:
		return "Invalid username or password"
	case Locked:
		return "Identity is locked"
	}
	return "Authentication failed"
}

// Is matches auth errors of the same kind
func (e *AuthError) Is(target error) bool {
	other, ok := target.(*AuthError)
	return ok && other.Kind == e.Kind
}

// Errors of the auth service
var (
	ErrInvalidCredentials = &AuthError{Kind: InvalidCredentials}
	ErrLocked             = &AuthError{Kind: Locked}

	ErrUsernameTaken    = errors.New("Username is already taken")
	ErrIdentityNotFound = errors.New("Identity not found")
	ErrInvalidUsername  = errors.New("Username must not be empty")
	ErrInvalidPassword  = errors.New("Password must not be empty")
)
