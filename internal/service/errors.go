// Package service provides business logic services for Photoshare.
package service

import "errors"

// Common service errors.
var (
	// ErrInternalError wraps infrastructure failures. Business rule
	// violations are reported with the errors in package domain instead.
	ErrInternalError = errors.New("internal server error")
)
