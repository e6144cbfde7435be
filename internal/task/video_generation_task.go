package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/vidgen-api/internal/domain"
	"github.com/phrazzld/vidgen-api/internal/generation"
	"github.com/phrazzld/vidgen-api/internal/redact"
	"github.com/phrazzld/vidgen-api/internal/store"
	"github.com/sethvargo/go-retry"
)

// Messages stored on failed tasks.
const (
	msgProviderUnavailable = "video provider unavailable"
	msgProviderFailed      = "video generation failed"
	msgMissingVideoURL     = "video provider reported success without a video URL"
	msgTimeout             = "video generation timed out after %s"
	msgInternal            = "internal error during video generation"
)

const (
	defaultArchiveTimeout = 10 * time.Minute
	defaultStoreRetries   = 3
	defaultStoreRetryBase = 200 * time.Millisecond
	failureWriteTimeout   = 10 * time.Second
)

// VideoGenerationConfig tunes the drive loop. Zero values for the archive
// and store retry settings fall back to defaults.
type VideoGenerationConfig struct {
	PollInterval   time.Duration
	MaxWait        time.Duration
	ArchiveTimeout time.Duration
	Watermark      bool
	NegativePrompt string

	// StoreRetries bounds retries of a transient store error before the
	// task is given up as FAILED.
	StoreRetries   int
	StoreRetryBase time.Duration
}

// errStopDrive ends a drive quietly: the task was deleted, cancelled or
// finished elsewhere.
var errStopDrive = errors.New("stop drive")

// VideoGenerationTask drives one stored video task to a terminal state.
type VideoGenerationTask struct {
	taskID   uuid.UUID
	tasks    store.VideoTaskStore
	provider generation.VideoProvider
	archiver generation.VideoArchiver
	cfg      VideoGenerationConfig
	logger   *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

var _ Task = (*VideoGenerationTask)(nil)

// NewVideoGenerationTask creates a drive for taskID. archiver may be nil.
func NewVideoGenerationTask(
	taskID uuid.UUID,
	tasks store.VideoTaskStore,
	provider generation.VideoProvider,
	archiver generation.VideoArchiver,
	cfg VideoGenerationConfig,
	logger *slog.Logger,
) (*VideoGenerationTask, error) {
	if taskID == uuid.Nil {
		return nil, fmt.Errorf("%w: task ID cannot be empty", domain.ErrInvalidID)
	}
	if tasks == nil {
		return nil, errors.New("video task store cannot be nil")
	}
	if provider == nil {
		return nil, errors.New("video provider cannot be nil")
	}
	if cfg.PollInterval <= 0 || cfg.MaxWait <= 0 {
		return nil, errors.New("poll interval and max wait must be positive")
	}
	if cfg.ArchiveTimeout <= 0 {
		cfg.ArchiveTimeout = defaultArchiveTimeout
	}
	if cfg.StoreRetries <= 0 {
		cfg.StoreRetries = defaultStoreRetries
	}
	if cfg.StoreRetryBase <= 0 {
		cfg.StoreRetryBase = defaultStoreRetryBase
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &VideoGenerationTask{
		taskID:   taskID,
		tasks:    tasks,
		provider: provider,
		archiver: archiver,
		cfg:      cfg,
		logger: logger.With(
			"task_type", TaskTypeVideoGeneration,
			"video_task_id", taskID,
			"provider", provider.Name()),
		now:   func() time.Time { return time.Now().UTC() },
		sleep: sleepContext,
	}, nil
}

// ID implements Task.
func (t *VideoGenerationTask) ID() uuid.UUID { return t.taskID }

// Type implements Task.
func (t *VideoGenerationTask) Type() string { return TaskTypeVideoGeneration }

// Execute implements Task. It returns nil when the task reached COMPLETED
// or the drive was stopped, and the failure cause when it reached FAILED.
func (t *VideoGenerationTask) Execute(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("panic while driving video task",
				"panic", r,
				"stack", string(debug.Stack()))
			t.abandon(ctx)
			err = fmt.Errorf("%w: %v", ErrInternal, r)
		}
	}()

	err = t.drive(ctx)
	if errors.Is(err, errStopDrive) {
		return nil
	}
	return err
}

func (t *VideoGenerationTask) drive(ctx context.Context) error {
	vt, err := t.load(ctx)
	if err != nil {
		if errors.Is(err, store.ErrVideoTaskNotFound) || ctx.Err() != nil {
			t.logger.Info("video task gone before drive started")
			return errStopDrive
		}
		t.logger.Error("giving up on loading video task", "error", err)
		t.abandon(ctx)
		return fmt.Errorf("failed to load video task: %w", err)
	}
	if vt.Status.IsTerminal() {
		return errStopDrive
	}

	if err := vt.StartProcessing(t.now()); err != nil {
		return t.fail(ctx, vt, msgInternal, err)
	}
	if err := t.save(ctx, vt); err != nil {
		return err
	}

	if vt.ProviderTaskID == nil || *vt.ProviderTaskID == "" {
		if err := t.submit(ctx, vt); err != nil {
			return err
		}
	} else {
		t.logger.Info("resuming poll of submitted task", "provider_task_id", *vt.ProviderTaskID)
	}

	return t.poll(ctx, vt)
}

func (t *VideoGenerationTask) submit(ctx context.Context, vt *domain.VideoTask) error {
	res, err := t.provider.Submit(ctx, t.submitRequest(vt))
	if err != nil {
		if ctx.Err() != nil {
			return errStopDrive
		}
		return t.fail(ctx, vt, msgProviderUnavailable+": "+redact.Error(err), err)
	}
	if err := vt.RecordSubmission(res.ProviderTaskID, t.now()); err != nil {
		return t.fail(ctx, vt, msgProviderUnavailable+": empty task id", err)
	}
	if err := t.save(ctx, vt); err != nil {
		return err
	}
	t.logger.Info("video task submitted", "provider_task_id", res.ProviderTaskID)
	return nil
}

func (t *VideoGenerationTask) poll(ctx context.Context, vt *domain.VideoTask) error {
	providerTaskID := *vt.ProviderTaskID
	var elapsed time.Duration

	for {
		if err := t.sleep(ctx, t.cfg.PollInterval); err != nil {
			return errStopDrive
		}
		elapsed += t.cfg.PollInterval

		res := t.provider.Poll(ctx, providerTaskID)
		if ctx.Err() != nil {
			return errStopDrive
		}
		t.logger.Debug("polled provider",
			"state", res.State,
			"elapsed", elapsed)

		switch res.State {
		case generation.StateSucceeded:
			if res.VideoURL == "" {
				return t.fail(ctx, vt, msgMissingVideoURL, domain.ErrMissingVideoURL)
			}
			return t.complete(ctx, vt, res.VideoURL)

		case generation.StateFailed:
			msg := msgProviderFailed
			if detail := strings.TrimSpace(res.Message); detail != "" {
				msg += ": " + redact.String(detail)
			}
			return t.fail(ctx, vt, msg, ErrProviderFailed)

		default:
			if elapsed >= t.cfg.MaxWait {
				return t.fail(ctx, vt, fmt.Sprintf(msgTimeout, t.cfg.MaxWait), ErrProviderTimeout)
			}
			if err := vt.RecordProgress(estimateProgress(elapsed, t.cfg.MaxWait), t.now()); err != nil {
				return t.fail(ctx, vt, msgInternal, err)
			}
			if err := t.save(ctx, vt); err != nil {
				return err
			}
		}
	}
}

func (t *VideoGenerationTask) complete(ctx context.Context, vt *domain.VideoTask, videoURL string) error {
	result := domain.VideoResult{
		VideoURL:              videoURL,
		ThumbnailURL:          domain.ThumbnailURL(videoURL),
		ActualDurationSeconds: generation.ProviderDuration(vt.DurationSeconds),
	}
	if t.archiver != nil {
		if err := t.archive(ctx, vt, &result); err != nil {
			return err
		}
	}

	if err := vt.Complete(result, t.now()); err != nil {
		return t.fail(ctx, vt, msgInternal, err)
	}
	if err := t.save(ctx, vt); err != nil {
		return err
	}
	t.logger.Info("video task completed")
	return nil
}

// archive copies the video and then its thumbnail into durable storage,
// rewriting the URLs in result. An asset that fails to copy keeps its
// provider URL. Both copies share one ArchiveTimeout deadline.
func (t *VideoGenerationTask) archive(ctx context.Context, vt *domain.VideoTask, result *domain.VideoResult) error {
	actx, cancel := context.WithTimeout(ctx, t.cfg.ArchiveTimeout)
	defer cancel()

	base := fmt.Sprintf("%s/%s", vt.UserID, vt.ID)
	video, err := t.archiver.Archive(actx, base+".mp4", result.VideoURL)
	switch {
	case ctx.Err() != nil:
		return errStopDrive
	case err != nil:
		t.logger.Warn("failed to archive video, keeping provider URL",
			"error", redact.Error(err))
		return nil
	}
	result.VideoURL = video.URL
	size := video.SizeBytes
	result.SizeBytes = &size

	thumb, err := t.archiver.Archive(actx, base+".jpg", result.ThumbnailURL)
	switch {
	case ctx.Err() != nil:
		return errStopDrive
	case err != nil:
		t.logger.Warn("failed to archive thumbnail, keeping provider URL",
			"error", redact.Error(err))
	default:
		result.ThumbnailURL = thumb.URL
	}
	return nil
}

// fail moves vt to FAILED with msg, persists it and returns cause.
func (t *VideoGenerationTask) fail(ctx context.Context, vt *domain.VideoTask, msg string, cause error) error {
	if err := vt.Fail(msg, t.now()); err != nil {
		return fmt.Errorf("failed to mark video task failed: %w", err)
	}
	if err := t.save(ctx, vt); err != nil {
		return err
	}
	t.logger.Warn("video task failed", "reason", msg)
	return cause
}

// abandon marks the task FAILED from a fresh copy, after a panic or once
// the store kept rejecting the drive's writes. A done ctx means the task was
// deleted or the runner is stopping, so nothing is written; otherwise the
// write runs detached from ctx under its own timeout.
func (t *VideoGenerationTask) abandon(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureWriteTimeout)
	defer cancel()

	vt, err := t.load(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrVideoTaskNotFound) {
			t.logger.Error("failed to reload video task to mark it failed", "error", err)
		}
		return
	}
	if vt.Status.IsTerminal() {
		return
	}
	if err := vt.Fail(msgInternal, t.now()); err != nil {
		return
	}
	if err := t.update(ctx, vt); err != nil {
		t.logger.Error("failed to persist video task failure", "error", err)
	}
}

// load reads the task, retrying transient store errors.
func (t *VideoGenerationTask) load(ctx context.Context) (*domain.VideoTask, error) {
	var vt *domain.VideoTask
	err := retry.Do(ctx, t.storeBackoff(), func(ctx context.Context) error {
		var err error
		vt, err = t.tasks.GetByID(ctx, t.taskID)
		if err != nil && !errors.Is(err, store.ErrVideoTaskNotFound) {
			return retry.RetryableError(err)
		}
		return err
	})
	return vt, err
}

// update writes vt, retrying transient store errors. A missing or already
// finished task is reported at once.
func (t *VideoGenerationTask) update(ctx context.Context, vt *domain.VideoTask) error {
	return retry.Do(ctx, t.storeBackoff(), func(ctx context.Context) error {
		err := t.tasks.Update(ctx, vt)
		if err == nil || errors.Is(err, store.ErrVideoTaskNotFound) || errors.Is(err, store.ErrStaleTask) {
			return err
		}
		t.logger.Warn("video task write failed, retrying", "error", err)
		return retry.RetryableError(err)
	})
}

func (t *VideoGenerationTask) storeBackoff() retry.Backoff {
	return retry.WithMaxRetries(uint64(t.cfg.StoreRetries), retry.NewExponential(t.cfg.StoreRetryBase))
}

// save persists vt. A deleted task, a task finished elsewhere or a
// cancelled context yields errStopDrive. When retries run out the task is
// abandoned as FAILED so it never stays PROCESSING with no drive behind it.
func (t *VideoGenerationTask) save(ctx context.Context, vt *domain.VideoTask) error {
	err := t.update(ctx, vt)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrVideoTaskNotFound):
		t.logger.Info("video task deleted during drive")
		return errStopDrive
	case errors.Is(err, store.ErrStaleTask):
		t.logger.Info("video task already finished")
		return errStopDrive
	case ctx.Err() != nil:
		return errStopDrive
	default:
		t.logger.Error("giving up on persisting video task", "error", err)
		t.abandon(ctx)
		return fmt.Errorf("failed to persist video task: %w", err)
	}
}

func (t *VideoGenerationTask) submitRequest(vt *domain.VideoTask) generation.SubmitRequest {
	prompt := vt.Prompt
	if vt.VideoStyle != nil && strings.TrimSpace(*vt.VideoStyle) != "" {
		prompt = fmt.Sprintf("%s, %s style", prompt, strings.TrimSpace(*vt.VideoStyle))
	}
	return generation.SubmitRequest{
		Prompt:          prompt,
		NegativePrompt:  t.cfg.NegativePrompt,
		Size:            generation.SizeForAspectRatio(vt.AspectRatio),
		DurationSeconds: generation.ProviderDuration(vt.DurationSeconds),
		Watermark:       t.cfg.Watermark,
	}
}

// estimateProgress maps time spent waiting onto 30..99.
func estimateProgress(elapsed, maxWait time.Duration) int {
	const floor, ceiling = 30, 99
	if maxWait <= 0 {
		return floor
	}
	p := floor + int(float64(ceiling-floor)*float64(elapsed)/float64(maxWait))
	if p > ceiling {
		return ceiling
	}
	return p
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
