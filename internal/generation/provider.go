package generation

import (
	"context"

	"github.com/phrazzld/vidgen-api/internal/domain"
)

// ProviderState is the provider's view of a submitted job.
type ProviderState string

const (
	StatePending   ProviderState = "PENDING"
	StateRunning   ProviderState = "RUNNING"
	StateSucceeded ProviderState = "SUCCEEDED"
	StateFailed    ProviderState = "FAILED"
	// StateUnknown covers transport failures and statuses the client does
	// not recognise. Callers keep polling.
	StateUnknown ProviderState = "UNKNOWN"
)

// SubmitRequest describes one job for the provider.
type SubmitRequest struct {
	Prompt          string
	NegativePrompt  string
	Size            string
	DurationSeconds int
	Watermark       bool
}

// SubmitResult is the provider's acknowledgement of a job.
type SubmitResult struct {
	ProviderTaskID string
}

// PollResult is a single status observation.
type PollResult struct {
	State    ProviderState
	VideoURL string
	Message  string
}

// VideoProvider is the asynchronous text-to-video service.
type VideoProvider interface {
	// Name identifies the provider on task records.
	Name() string

	// Submit starts a job. Failures wrap ErrProviderUnavailable.
	Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error)

	// Poll reports the job's state. It never returns an error: transport
	// problems are reported as StateUnknown.
	Poll(ctx context.Context, providerTaskID string) PollResult
}

// Provider frame sizes keyed by aspect ratio.
var sizeByAspectRatio = map[domain.AspectRatio]string{
	domain.AspectRatioLandscape: "1920*1080",
	domain.AspectRatioPortrait:  "1080*1920",
	domain.AspectRatioSquare:    "1080*1080",
}

// SizeForAspectRatio maps a ratio to the provider's size parameter.
// Unknown ratios fall back to landscape.
func SizeForAspectRatio(r domain.AspectRatio) string {
	if s, ok := sizeByAspectRatio[r]; ok {
		return s
	}
	return sizeByAspectRatio[domain.AspectRatioLandscape]
}

// ProviderDuration maps a requested duration onto the two lengths the
// provider renders: 5 seconds for requests of at most 5, otherwise 10.
func ProviderDuration(seconds int) int {
	if seconds <= 5 {
		return 5
	}
	return 10
}

// ArchivedVideo is a provider video copied to storage the service controls.
type ArchivedVideo struct {
	URL       string
	SizeBytes int64
}

// VideoArchiver copies a finished video out of the provider's short lived
// storage. Key is a stable object name derived from the task.
type VideoArchiver interface {
	Archive(ctx context.Context, key, sourceURL string) (*ArchivedVideo, error)
}
