// Package domain contains the core business entities for Photoshare.
package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every domain error wraps exactly one of these so the HTTP
// layer can classify failures with errors.Is.
var (
	// ErrValidation indicates malformed input (id shape, missing fields).
	ErrValidation = errors.New("validation error")

	// ErrUnauthorized indicates missing or insufficient identity.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound indicates the referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a uniqueness violation.
	ErrConflict = errors.New("conflict")
)

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (database, network, etc.).
var (
	// ===========================================
	// User Errors
	// ===========================================

	// ErrUserNotFound indicates no user has the requested username.
	ErrUserNotFound = kind(ErrNotFound, "user is not registered")

	// ErrUserAlreadyExists indicates the username is taken.
	ErrUserAlreadyExists = kind(ErrConflict, "username is already taken")

	// ErrInvalidCredentials indicates the password did not verify.
	ErrInvalidCredentials = kind(ErrUnauthorized, "invalid credentials")

	// ErrPasswordTooShort indicates a password below MinPasswordLength.
	ErrPasswordTooShort = kind(ErrValidation, fmt.Sprintf("password must be at least %d characters", MinPasswordLength))

	// ErrUsernameTooShort indicates a username below MinUsernameLength.
	ErrUsernameTooShort = kind(ErrValidation, fmt.Sprintf("username must be at least %d characters", MinUsernameLength))

	// ===========================================
	// Session Errors
	// ===========================================

	// ErrAuthenticationRequired indicates the route needs a resolved identity.
	ErrAuthenticationRequired = kind(ErrUnauthorized, "authentication required")

	// ErrSessionNotFound indicates the session id does not exist.
	ErrSessionNotFound = kind(ErrNotFound, "session not found")

	// ===========================================
	// Image Errors
	// ===========================================

	// ErrImageNotFound indicates the requested image does not exist.
	ErrImageNotFound = kind(ErrNotFound, "image not found")

	// ErrImageAccessDenied indicates a private image requested by a non-owner.
	ErrImageAccessDenied = kind(ErrUnauthorized, "access denied")

	// ErrImageAlreadyExists indicates a second record for the same image key.
	ErrImageAlreadyExists = kind(ErrConflict, "image key already registered")

	// ErrInvalidImageID indicates the image id is not a positive integer.
	ErrInvalidImageID = kind(ErrValidation, "invalid image id")

	// ErrInvalidCursor indicates the lastid query parameter is malformed.
	ErrInvalidCursor = kind(ErrValidation, "invalid lastid")

	// ErrInvalidImageKey indicates a missing or unsafe image key.
	ErrInvalidImageKey = kind(ErrValidation, "invalid image key")

	// ===========================================
	// Upload Errors
	// ===========================================

	// ErrInvalidContentType indicates a content type that is not a supported image type.
	ErrInvalidContentType = kind(ErrValidation, "invalid content type")

	// ErrNoContentTypes indicates an empty presign request.
	ErrNoContentTypes = kind(ErrValidation, "contentTypes must be a non-empty array")

	// ErrTooManyFiles indicates more slots were requested than allowed per batch.
	ErrTooManyFiles = kind(ErrValidation, "too many files in one upload")

	// ErrNoImages indicates an empty confirm request.
	ErrNoImages = kind(ErrValidation, "images must be a non-empty array")
)

// Credential policy.
const (
	MinPasswordLength = 6
	MinUsernameLength = 3
)

// kindError is a sentinel with a human readable message that classifies as
// one of the error kinds.
type kindError struct {
	kind error
	msg  string
}

func kind(k error, msg string) error {
	return &kindError{kind: k, msg: msg}
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// DomainError wraps a domain error with additional context.
type DomainError struct {
	// Err is the underlying domain error.
	Err error

	// Message provides additional context.
	Message string

	// Resource identifies the affected resource (e.g., image id, image key).
	Resource string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Resource != "" && e.Message != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Err.Error(), e.Message, e.Resource)
	}
	if e.Resource != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Resource)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError with context.
func NewDomainError(err error, message, resource string) *DomainError {
	return &DomainError{
		Err:      err,
		Message:  message,
		Resource: resource,
	}
}

// IsDomainError reports whether err belongs to one of the four error kinds.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict)
}
