package provider

import "errors"

// Common errors
var (
	// ErrNotFound indicates the provider answered that the resource does not exist.
	// Only this error may trigger a create.
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates a resource with the same idempotency key exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidArgument indicates a caller-provided value violates a precondition
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotConfigured indicates a required setting is empty
	ErrNotConfigured = errors.New("not configured")
)
