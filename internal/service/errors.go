package service

import (
	"errors"
	"fmt"
)

// Common service errors
var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when a resource is not in the required state
	ErrConflict = errors.New("resource conflict")

	// ErrMatchingNotFound is returned for an unknown matching operation id
	ErrMatchingNotFound = fmt.Errorf("matching operation: %w", ErrNotFound)

	// ErrSyncNotFound is returned for an unknown sync operation id
	ErrSyncNotFound = fmt.Errorf("sync operation: %w", ErrNotFound)

	// ErrMatchingNotComplete is returned when syncing a matching pass that is still running or failed
	ErrMatchingNotComplete = fmt.Errorf("matching operation has not completed: %w", ErrConflict)

	// ErrMissingAPIKey is returned when an account has no API key configured
	ErrMissingAPIKey = errors.New("no API key configured for account")

	// ErrPipelineNotFound is returned when a requested pipeline does not exist in the account
	ErrPipelineNotFound = fmt.Errorf("pipeline: %w", ErrNotFound)

	// ErrInvalidThresholds is returned when the thresholds are out of order
	ErrInvalidThresholds = errors.New("high confidence threshold must not be below match threshold")
)
