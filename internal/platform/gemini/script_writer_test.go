package gemini

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/phrazzld/vidgen-api/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	responses []*genai.GenerateContentResponse
	errs      []error
	calls     int
	lastModel string
	lastCfg   *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(
	_ context.Context,
	model string,
	_ []*genai.Content,
	cfg *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	i := f.calls
	f.calls++
	f.lastModel = model
	f.lastCfg = cfg
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return nil, errors.New("unexpected call")
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
	}}}
}

func newTestWriter(models contentGenerator) *ScriptWriter {
	return newScriptWriter(models, Config{Model: "gemini-test", MaxRetries: 2, RetryBase: time.Millisecond},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestWriteScript(t *testing.T) {
	t.Parallel()

	models := &fakeModels{responses: []*genai.GenerateContentResponse{textResponse("  Hook. Body. Call to action.  ")}}
	w := newTestWriter(models)

	script, err := w.WriteScript(context.Background(), generation.ScriptRequest{Topic: "coffee", Style: "humorous", DurationSeconds: 15})
	require.NoError(t, err)
	assert.Equal(t, "Hook. Body. Call to action.", script)
	assert.Equal(t, "gemini-test", models.lastModel)
	require.NotNil(t, models.lastCfg.SystemInstruction)
	sys := models.lastCfg.SystemInstruction.Parts[0].Text
	assert.Contains(t, sys, "about 15 seconds")
	assert.Contains(t, sys, "Style: humorous")
}

func TestWriteScriptRetriesTransportErrors(t *testing.T) {
	t.Parallel()

	models := &fakeModels{
		errs:      []error{errors.New("503"), nil},
		responses: []*genai.GenerateContentResponse{nil, textResponse("script")},
	}
	w := newTestWriter(models)

	script, err := w.WriteScript(context.Background(), generation.ScriptRequest{Topic: "t", DurationSeconds: 30})
	require.NoError(t, err)
	assert.Equal(t, "script", script)
	assert.Equal(t, 2, models.calls)
}

func TestWriteScriptBlocked(t *testing.T) {
	t.Parallel()

	blocked := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}}}
	models := &fakeModels{responses: []*genai.GenerateContentResponse{blocked}}
	w := newTestWriter(models)

	_, err := w.WriteScript(context.Background(), generation.ScriptRequest{Topic: "t"})
	assert.ErrorIs(t, err, generation.ErrContentBlocked)
	assert.Equal(t, 1, models.calls, "blocked content is not retried")
}

func TestWriteScriptEmpty(t *testing.T) {
	t.Parallel()

	models := &fakeModels{responses: []*genai.GenerateContentResponse{{}}}
	w := newTestWriter(models)

	_, err := w.WriteScript(context.Background(), generation.ScriptRequest{Topic: "t"})
	assert.ErrorIs(t, err, generation.ErrInvalidResponse)
}

func TestNewScriptWriterRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := NewScriptWriter(context.Background(), Config{}, nil)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}
