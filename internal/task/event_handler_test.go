package task

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/vidgen-api/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFactory struct {
	createdFor uuid.UUID
	err        error
}

func (f *stubFactory) CreateTask(id uuid.UUID) (Task, error) {
	f.createdFor = id
	if f.err != nil {
		return nil, f.err
	}
	return &MockTask{TaskID: id, TaskType: TaskTypeVideoGeneration}, nil
}

type stubSubmitter struct {
	submitted []Task
	err       error
}

func (s *stubSubmitter) Submit(_ context.Context, task Task) error {
	if s.err != nil {
		return s.err
	}
	s.submitted = append(s.submitted, task)
	return nil
}

func TestTaskFactoryEventHandler(t *testing.T) {
	t.Parallel()

	taskID := uuid.New()
	event, err := events.NewVideoGenerationEvent(taskID, uuid.New())
	require.NoError(t, err)

	t.Run("schedules video generation", func(t *testing.T) {
		factory, submitter := &stubFactory{}, &stubSubmitter{}
		h := NewTaskFactoryEventHandler(factory, submitter, setupTestLogger())

		require.NoError(t, h.HandleEvent(context.Background(), event))
		assert.Equal(t, taskID, factory.createdFor)
		require.Len(t, submitter.submitted, 1)
		assert.Equal(t, taskID, submitter.submitted[0].ID())
	})

	t.Run("ignores other event types", func(t *testing.T) {
		other, err := events.NewTaskRequestEvent("something_else", map[string]string{})
		require.NoError(t, err)
		factory, submitter := &stubFactory{}, &stubSubmitter{}
		h := NewTaskFactoryEventHandler(factory, submitter, setupTestLogger())

		require.NoError(t, h.HandleEvent(context.Background(), other))
		assert.Empty(t, submitter.submitted)
	})

	t.Run("bad payload", func(t *testing.T) {
		bad := &events.TaskRequestEvent{ID: uuid.New(), Type: events.TypeVideoGeneration, Payload: []byte("{")}
		h := NewTaskFactoryEventHandler(&stubFactory{}, &stubSubmitter{}, setupTestLogger())
		assert.Error(t, h.HandleEvent(context.Background(), bad))
	})

	t.Run("factory error", func(t *testing.T) {
		h := NewTaskFactoryEventHandler(&stubFactory{err: errors.New("nope")}, &stubSubmitter{}, setupTestLogger())
		assert.Error(t, h.HandleEvent(context.Background(), event))
	})

	t.Run("queue full propagates", func(t *testing.T) {
		h := NewTaskFactoryEventHandler(&stubFactory{}, &stubSubmitter{err: ErrQueueFull}, setupTestLogger())
		err := h.HandleEvent(context.Background(), event)
		assert.ErrorIs(t, err, ErrQueueFull)
	})
}
