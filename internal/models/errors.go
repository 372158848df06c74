package models

import (
	"errors"
)

// Domain sentinel errors. Handlers map these to HTTP statuses; callers
// test with errors.Is after %w wrapping.
var (
	// ErrValidation covers rejected input (empty description, bad
	// status value, malformed payload).
	ErrValidation = errors.New("validation failed")

	// ErrNotFound covers missing records and unknown job ids.
	ErrNotFound = errors.New("not found")

	// ErrQueueDispatch covers a failed enqueue during async submission.
	ErrQueueDispatch = errors.New("queue dispatch failed")

	// ErrForbidden covers a principal acting outside its role.
	ErrForbidden = errors.New("forbidden")

	// ErrUnauthorized covers missing or unresolvable credentials.
	ErrUnauthorized = errors.New("unauthorized")
)
