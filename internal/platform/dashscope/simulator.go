package dashscope

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/phrazzld/vidgen-api/internal/generation"
)

// SimulatorName is recorded on tasks driven by the simulator.
const SimulatorName = "simulator"

const simulatedIDPrefix = "sim_"

// Simulator is a stand-in provider whose job state is a pure function of the
// time elapsed since submission: pending for PendingFor, running until
// CompleteAfter, then succeeded with a fabricated URL.
type Simulator struct {
	PendingFor    time.Duration
	CompleteAfter time.Duration
	BaseURL       string
	now           func() time.Time
}

var _ generation.VideoProvider = (*Simulator)(nil)

// NewSimulator returns a simulator with a 5s pending and 10s total lifecycle.
func NewSimulator() *Simulator {
	return &Simulator{
		PendingFor:    5 * time.Second,
		CompleteAfter: 10 * time.Second,
		BaseURL:       "https://simulated.invalid/videos",
		now:           time.Now,
	}
}

// Name implements generation.VideoProvider.
func (s *Simulator) Name() string { return SimulatorName }

// Submit implements generation.VideoProvider. The id encodes the submission time.
func (s *Simulator) Submit(ctx context.Context, _ generation.SubmitRequest) (*generation.SubmitResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", generation.ErrProviderUnavailable, err)
	}
	id := simulatedIDPrefix + strconv.FormatInt(s.now().UnixNano(), 10)
	return &generation.SubmitResult{ProviderTaskID: id}, nil
}

// Poll implements generation.VideoProvider.
func (s *Simulator) Poll(_ context.Context, providerTaskID string) generation.PollResult {
	raw, ok := strings.CutPrefix(providerTaskID, simulatedIDPrefix)
	if !ok {
		return generation.PollResult{State: generation.StateUnknown, Message: "unrecognised task id"}
	}
	nanos, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return generation.PollResult{State: generation.StateUnknown, Message: "unrecognised task id"}
	}

	elapsed := s.now().Sub(time.Unix(0, nanos))
	switch {
	case elapsed < s.PendingFor:
		return generation.PollResult{State: generation.StatePending}
	case elapsed < s.CompleteAfter:
		return generation.PollResult{State: generation.StateRunning}
	default:
		return generation.PollResult{
			State:    generation.StateSucceeded,
			VideoURL: fmt.Sprintf("%s/%s.mp4", strings.TrimRight(s.BaseURL, "/"), providerTaskID),
		}
	}
}
