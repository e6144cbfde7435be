// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrUnauthorized is returned when an operation is not permitted.
	ErrUnauthorized = errors.New("unauthorized operation")

	// ErrInvalidTransition is returned when a task state change is not allowed.
	ErrInvalidTransition = errors.New("invalid task status transition")

	// ErrTaskTerminal is returned when a completed or failed task is modified.
	ErrTaskTerminal = errors.New("task is in a terminal state")

	// ErrMissingVideoURL is returned when a task is completed without a video URL.
	ErrMissingVideoURL = errors.New("completed task requires a video URL")

	// ErrUserNotActive is returned when an inactive or banned user acts.
	ErrUserNotActive = errors.New("user is not active")
)
