package generation

import "errors"

// Common errors returned by the generation package
var (
	// ErrProviderUnavailable is returned when a job cannot be submitted:
	// transport failure, rejected credentials or a non-success reply.
	ErrProviderUnavailable = errors.New("video provider unavailable")

	// ErrInvalidResponse is returned when a provider reply cannot be parsed.
	ErrInvalidResponse = errors.New("invalid response from provider")

	// ErrContentBlocked is returned when the language model refuses the prompt.
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrTransientFailure is returned for temporary errors that might resolve on retry.
	ErrTransientFailure = errors.New("transient generation failure")

	// ErrInvalidConfig is returned when a client configuration is invalid.
	ErrInvalidConfig = errors.New("invalid generation configuration")

	// ErrScriptWriterDisabled is returned when no language model is configured.
	ErrScriptWriterDisabled = errors.New("script generation is not configured")
)
