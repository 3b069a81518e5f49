package domain

import (
	"errors"
	"strings"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("You must own a store in order to edit it!")
	ErrDuplicateEmail     = errors.New("That email address is already registered.")
	ErrDuplicateSlug      = errors.New("slug already taken")
	ErrInvalidCredentials = errors.New("Login Failed")
	ErrInvalidResetToken  = errors.New("Password reset token is invalid or expired.")
)

// ValidationError carries user-facing messages for a rejected submission.
type ValidationError struct {
	Messages []string
}

func NewValidationError(msgs ...string) *ValidationError {
	return &ValidationError{Messages: msgs}
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, " ")
}

// AsValidation unwraps err into a *ValidationError if it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
