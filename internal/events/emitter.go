package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrUnhandled is returned when an event reaches an emitter with no handlers.
// A task whose event is unhandled would otherwise sit PENDING until restart.
var ErrUnhandled = errors.New("no handler registered for event")

// InMemoryEventEmitter delivers events synchronously, in registration order,
// to the handlers of this process.
type InMemoryEventEmitter struct {
	mu       sync.RWMutex
	handlers []EventHandler
	logger   *slog.Logger
}

var _ EventEmitter = (*InMemoryEventEmitter)(nil)

// NewInMemoryEventEmitter returns an emitter with no handlers.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryEventEmitter{logger: logger.With("component", "event_emitter")}
}

// RegisterHandler appends handler to the delivery list.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler) {
	e.mu.Lock()
	e.handlers = append(e.handlers, handler)
	n := len(e.handlers)
	e.mu.Unlock()
	e.logger.Debug("event handler registered", "handlers", n)
}

// EmitEvent hands event to each handler. Every handler sees the event even
// when an earlier one fails; the errors are joined.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *TaskRequestEvent) error {
	e.mu.RLock()
	handlers := make([]EventHandler, len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.RUnlock()

	if len(handlers) == 0 {
		return fmt.Errorf("%w: %s %s", ErrUnhandled, event.Type, event.ID)
	}

	var errs []error
	for _, h := range handlers {
		if err := h.HandleEvent(ctx, event); err != nil {
			e.logger.ErrorContext(ctx, "event handler failed",
				"event_id", event.ID,
				"event_type", event.Type,
				"error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
