package pubhub

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error types
var (
	// ErrPublicationNotFound indicates a publication id did not resolve in
	// the published scope (or at all, on the edit paths).
	ErrPublicationNotFound = errors.New("publication not found")

	// ErrItemNotFound indicates an item id did not resolve.
	ErrItemNotFound = errors.New("item not found")

	// ErrContentNotFound indicates the Content association for an item is
	// missing. On the delete path this signals state corruption.
	ErrContentNotFound = errors.New("content association not found")

	// ErrUserNotFound indicates a user id did not resolve.
	ErrUserNotFound = errors.New("user not found")

	// ErrResetNotFound indicates a password reset token did not resolve or
	// has expired.
	ErrResetNotFound = errors.New("password reset not found")

	// ErrForbidden indicates the requester is authenticated but is not the
	// authorizing party (author or creator) for the mutation.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidKind indicates a kind tag outside the allowed set for the
	// context (publication vs item).
	ErrInvalidKind = errors.New("invalid kind tag")

	// ErrInvalidCredentials indicates a failed login attempt.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUsernameTaken and ErrEmailTaken are raised by repositories on
	// unique violations and surfaced as field-level validation errors.
	ErrUsernameTaken = errors.New("username already taken")
	ErrEmailTaken    = errors.New("email already taken")
)

// FieldErrors maps failing fields to exactly one first-error message each.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, e[f]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records the first error for a field; later errors for the same field
// are dropped.
func (e FieldErrors) Add(field, message string) {
	if _, ok := e[field]; !ok {
		e[field] = message
	}
}

// PublicationError wraps an error from a publication operation.
type PublicationError struct {
	Kind PublicationKind
	ID   int64
	Op   string
	Err  error
}

func (e *PublicationError) Error() string {
	return fmt.Sprintf("publication operation %s failed for %s/%d: %v", e.Op, e.Kind, e.ID, e.Err)
}

func (e *PublicationError) Unwrap() error {
	return e.Err
}

// ItemError wraps an error from an item operation.
type ItemError struct {
	Kind ItemKind
	ID   int64
	Op   string
	Err  error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item operation %s failed for %s/%d: %v", e.Op, e.Kind, e.ID, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}
