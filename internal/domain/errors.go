package domain

import (
	"errors"
	"sort"
	"strings"
)

// Conflict errors
var (
	ErrUsernameTaken = errors.New("username is already taken")
	ErrEmailTaken    = errors.New("user already exists with this email")
)

// Not-found errors
var (
	ErrAccountNotFound = errors.New("user not found")
	ErrMessageNotFound = errors.New("message not found or already deleted")
)

// Verification errors
var (
	ErrCodeExpired   = errors.New("verification code has expired, please sign up again to get a new code")
	ErrCodeIncorrect = errors.New("incorrect verification code")
)

// Authentication errors
var (
	ErrUnauthenticated = errors.New("not authenticated")
	ErrInvalidToken    = errors.New("invalid or expired session")
	ErrNoSuchUser      = errors.New("no user found with this email or username")
	ErrWrongPassword   = errors.New("incorrect password")
)

// Forbidden errors
var (
	ErrNotAcceptingMessages = errors.New("user is not accepting messages")
	ErrNotVerified          = errors.New("please verify your account before signing in")
)

// Dependency errors
var (
	ErrEmailDelivery = errors.New("account saved but the verification email could not be sent")
)

// ValidationError reports malformed input, one message per offending field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid request"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, e.Fields[k])
	}
	return strings.Join(parts, ", ")
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// Kind classifies an error for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindAuth
	KindForbidden
	KindDependency
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrUsernameTaken, KindConflict},
	{ErrEmailTaken, KindConflict},
	{ErrAccountNotFound, KindNotFound},
	{ErrMessageNotFound, KindNotFound},
	{ErrCodeExpired, KindValidation},
	{ErrCodeIncorrect, KindValidation},
	{ErrUnauthenticated, KindAuth},
	{ErrInvalidToken, KindAuth},
	{ErrNoSuchUser, KindAuth},
	{ErrWrongPassword, KindAuth},
	{ErrNotAcceptingMessages, KindForbidden},
	{ErrNotVerified, KindForbidden},
	{ErrEmailDelivery, KindDependency},
}

// KindOf returns the taxonomy kind of err. Unknown errors are KindInternal.
func KindOf(err error) Kind {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return KindValidation
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// PublicMessage returns the client-safe text for err. Errors outside the
// taxonomy are reported as a generic internal error.
func PublicMessage(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.err.Error()
		}
	}
	return "internal server error"
}
