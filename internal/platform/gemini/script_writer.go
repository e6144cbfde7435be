// Package gemini implements generation.ScriptWriter with Google's Gemini API.
package gemini

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/phrazzld/vidgen-api/internal/generation"
	"github.com/sethvargo/go-retry"
	"google.golang.org/genai"
)

const defaultStyle = "natural, engaging and easy to follow"

var systemPromptTemplate = template.Must(template.New("script").Parse(
	`You are a professional short-video script writer.
Write a script of about {{.DurationSeconds}} seconds on the topic the user provides.

Structure:
1. An opening hook for the first three seconds
2. The main content
3. A closing call to action

Style: {{.Style}}

Output only the script, without commentary.`))

// contentGenerator is the subset of *genai.Models the writer calls.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Config configures the script writer.
type Config struct {
	APIKey     string
	Model      string
	MaxRetries int
	RetryBase  time.Duration
}

// ScriptWriter drafts video scripts with Gemini.
type ScriptWriter struct {
	models contentGenerator
	cfg    Config
	logger *slog.Logger
}

var _ generation.ScriptWriter = (*ScriptWriter)(nil)

// NewScriptWriter creates a Gemini client and wraps it.
func NewScriptWriter(ctx context.Context, cfg Config, logger *slog.Logger) (*ScriptWriter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}
	return newScriptWriter(client.Models, cfg, logger), nil
}

func newScriptWriter(models contentGenerator, cfg Config, logger *slog.Logger) *ScriptWriter {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ScriptWriter{
		models: models,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "gemini_script_writer")),
	}
}

// WriteScript implements generation.ScriptWriter. Transport errors are
// retried; blocked or empty responses are not.
func (w *ScriptWriter) WriteScript(ctx context.Context, req generation.ScriptRequest) (string, error) {
	style := strings.TrimSpace(req.Style)
	if style == "" {
		style = defaultStyle
	}
	var sys bytes.Buffer
	if err := systemPromptTemplate.Execute(&sys, struct {
		DurationSeconds int
		Style           string
	}{req.DurationSeconds, style}); err != nil {
		return "", fmt.Errorf("failed to render system prompt: %w", err)
	}

	temperature := float32(0.8)
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: sys.String()}}},
		Temperature:       &temperature,
	}

	var script string
	backoff := retry.WithMaxRetries(uint64(w.cfg.MaxRetries), retry.NewExponential(w.cfg.RetryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := w.models.GenerateContent(ctx, w.cfg.Model, genai.Text(req.Topic), config)
		if err != nil {
			w.logger.WarnContext(ctx, "Gemini API call failed", "error", err)
			return retry.RetryableError(fmt.Errorf("%w: %v", generation.ErrTransientFailure, err))
		}
		text, err := extractText(resp)
		if err != nil {
			return err
		}
		script = text
		return nil
	})
	if err != nil {
		return "", err
	}
	return script, nil
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates", generation.ErrInvalidResponse)
	}
	cand := resp.Candidates[0]
	if cand.FinishReason == genai.FinishReasonSafety {
		return "", generation.ErrContentBlocked
	}
	if cand.Content == nil {
		return "", fmt.Errorf("%w: empty content", generation.ErrInvalidResponse)
	}
	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", errors.Join(generation.ErrInvalidResponse, errors.New("empty script"))
	}
	return text, nil
}
