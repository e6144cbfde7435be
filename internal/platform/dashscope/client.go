// Package dashscope implements generation.VideoProvider against the DashScope
// asynchronous video synthesis API, plus a deterministic simulator used when
// no provider account is available.
package dashscope

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/phrazzld/vidgen-api/internal/generation"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"
)

const (
	// ProviderName is recorded on tasks driven by this client.
	ProviderName = "dashscope"

	submitPath = "/services/aigc/video-generation/video-synthesis"
	tasksPath  = "/tasks/"

	defaultRetryBase = 500 * time.Millisecond
	maxErrorBody     = 4 << 10
)

// Config configures a Client.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	RequestTimeout time.Duration
	// MaxRetries bounds submit retries after the first attempt.
	MaxRetries int
	// RateLimit is the sustained number of outbound calls per second.
	RateLimit    float64
	PromptExtend bool
	// RetryBase is the first backoff interval. Zero means 500ms.
	RetryBase  time.Duration
	HTTPClient *http.Client
}

// Client talks to DashScope over HTTP.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ generation.VideoProvider = (*Client)(nil)

// NewClient validates cfg and builds a Client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: api key is required", generation.ErrInvalidConfig)
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("%w: invalid base url: %v", generation.ErrInvalidConfig, err)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model is required", generation.ErrInvalidConfig)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = defaultRetryBase
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 5
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	burst := int(cfg.RateLimit)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		cfg:     cfg,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), burst),
		logger:  logger.With(slog.String("component", "dashscope_client")),
	}, nil
}

// Name implements generation.VideoProvider.
func (c *Client) Name() string { return ProviderName }

// httpStatusError carries a non-success reply.
type httpStatusError struct {
	status  int
	code    string
	message string
}

func (e *httpStatusError) Error() string {
	if e.code != "" {
		return fmt.Sprintf("provider returned %d: %s: %s", e.status, e.code, e.message)
	}
	return fmt.Sprintf("provider returned %d: %s", e.status, e.message)
}

func (e *httpStatusError) retryable() bool {
	return e.status == http.StatusTooManyRequests || e.status >= 500
}

// Submit implements generation.VideoProvider. Network errors, 429 and 5xx
// replies are retried with exponential backoff.
func (c *Client) Submit(ctx context.Context, req generation.SubmitRequest) (*generation.SubmitResult, error) {
	body, err := json.Marshal(submitBody{
		Model: c.cfg.Model,
		Input: submitInput{Prompt: req.Prompt, NegativePrompt: req.NegativePrompt},
		Parameters: submitParameters{
			Size:         req.Size,
			Duration:     req.DurationSeconds,
			PromptExtend: c.cfg.PromptExtend,
			Watermark:    req.Watermark,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", generation.ErrProviderUnavailable, err)
	}

	backoff := retry.WithMaxRetries(uint64(c.cfg.MaxRetries), retry.NewExponential(c.cfg.RetryBase))

	var taskID string
	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		resp, err := c.do(ctx, http.MethodPost, c.cfg.BaseURL+submitPath, body, map[string]string{
			"X-DashScope-Async": "enable",
		})
		if err != nil {
			var statusErr *httpStatusError
			if errors.As(err, &statusErr) && !statusErr.retryable() {
				return err
			}
			if ctx.Err() != nil {
				return err
			}
			c.logger.Warn("provider submit attempt failed",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
			return retry.RetryableError(err)
		}
		if resp.Output.TaskID == "" {
			return fmt.Errorf("%w: missing task id", generation.ErrInvalidResponse)
		}
		taskID = resp.Output.TaskID
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", generation.ErrProviderUnavailable, err)
	}

	c.logger.Info("provider job submitted",
		slog.String("provider_task_id", taskID),
		slog.Int("attempts", attempt))
	return &generation.SubmitResult{ProviderTaskID: taskID}, nil
}

// Poll implements generation.VideoProvider with a single attempt.
func (c *Client) Poll(ctx context.Context, providerTaskID string) generation.PollResult {
	resp, err := c.do(ctx, http.MethodGet, c.cfg.BaseURL+tasksPath+url.PathEscape(providerTaskID), nil, nil)
	if err != nil {
		var statusErr *httpStatusError
		if errors.As(err, &statusErr) && !statusErr.retryable() {
			return generation.PollResult{State: generation.StateFailed, Message: statusErr.Error()}
		}
		c.logger.Warn("provider poll failed",
			slog.String("provider_task_id", providerTaskID),
			slog.String("error", err.Error()))
		return generation.PollResult{State: generation.StateUnknown, Message: err.Error()}
	}

	out := resp.Output
	switch strings.ToUpper(out.TaskStatus) {
	case "PENDING":
		return generation.PollResult{State: generation.StatePending}
	case "RUNNING":
		return generation.PollResult{State: generation.StateRunning}
	case "SUCCEEDED":
		return generation.PollResult{State: generation.StateSucceeded, VideoURL: out.VideoURL}
	case "FAILED", "CANCELED":
		msg := out.Message
		if msg == "" {
			msg = "provider reported " + strings.ToLower(out.TaskStatus)
		}
		if out.Code != "" {
			msg = out.Code + ": " + msg
		}
		return generation.PollResult{State: generation.StateFailed, Message: msg}
	default:
		return generation.PollResult{State: generation.StateUnknown, Message: out.TaskStatus}
	}
}

// Download streams the file at videoURL into w and returns the byte count.
func (c *Client) Download(ctx context.Context, videoURL string, w io.Writer) (int64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, videoURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build download request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to download video: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, &httpStatusError{status: resp.StatusCode, message: "download failed"}
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("failed to read video body: %w", err)
	}
	return n, nil
}

// do performs one rate limited, time bounded call and decodes the reply.
func (c *Client) do(
	ctx context.Context,
	method, endpoint string,
	body []byte,
	headers map[string]string,
) (*apiResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(callCtx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &httpStatusError{status: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var decoded apiResponse
		if json.Unmarshal(raw, &decoded) == nil {
			statusErr.code, statusErr.message = decoded.Code, decoded.Message
		}
		if statusErr.message == "" {
			statusErr.message = http.StatusText(resp.StatusCode)
		}
		return nil, statusErr
	}

	var decoded apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrInvalidResponse, err)
	}
	return &decoded, nil
}
