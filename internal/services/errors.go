// Package services defines the business logic for routing rules and
// connection probing. This file centralizes common service-level error values
// so that they can be consistently returned by service methods and checked by
// callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler/controller layer.
package services

import "errors"

// Mapping-related errors.
var (
	// ErrValidation is returned (wrapped with detail) when mapping input is
	// malformed or references a platform instance that does not exist or is
	// inactive.
	ErrValidation = errors.New("invalid mapping")

	// ErrDuplicateMapping is returned when an active mapping already exists
	// for the same (source, desk account, AI app) combination.
	ErrDuplicateMapping = errors.New("active mapping already exists for this combination")

	// ErrMappingNotFound indicates that the requested mapping does not exist.
	ErrMappingNotFound = errors.New("mapping not found")
)
