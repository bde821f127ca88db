// Package common defines shared constants and sentinel errors used across
// the drive client. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Cache/repository-level errors.
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")

	// Transfer-level errors. ErrCancelled marks a user-initiated abort and is
	// never reported as a failure.
	ErrCancelled = errors.New("cancelled")

	// Response-shape errors.
	ErrValidation = errors.New("validation failed")

	// Auth errors (missing or expired session token).
	ErrUnauthorized = errors.New("unauthorized")

	// Task lifecycle errors.
	ErrTaskNotFound = errors.New("task not found")
	ErrTaskInFlight = errors.New("task is in flight")
)
