package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates missing or malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates a duplicate unique key such as a document number.
	ErrConflict = errors.New("duplicate entry")
	// ErrDependencyExists blocks deletes with active children.
	ErrDependencyExists = errors.New("dependent records exist")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized indicates a missing or invalid token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates insufficient role.
	ErrForbidden = errors.New("forbidden")
)
