package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lapply/lapply/pkg/queue"
)

type stubNotificationService struct {
	confirmations []string
	reminderRuns  int
	stepRuns      int
	err           error
}

func (s *stubNotificationService) DispatchDueReminders(context.Context) (int, error) {
	s.reminderRuns++
	return 0, s.err
}

func (s *stubNotificationService) DispatchDueStepDeliveries(context.Context) (int, error) {
	s.stepRuns++
	return 0, s.err
}

func (s *stubNotificationService) SendCancellationConfirmation(_ context.Context, applicationID string) error {
	s.confirmations = append(s.confirmations, applicationID)
	return s.err
}

func TestHandleConfirmationTask(t *testing.T) {
	notifications := &stubNotificationService{}
	w := NewTaskWorker(notifications)

	err := w.HandleTask(&queue.Task{
		ID:   "t1",
		Type: queue.TaskTypeSendConfirmation,
		Data: map[string]interface{}{"application_id": "app1"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"app1"}, notifications.confirmations)
}

func TestHandleConfirmationTaskMissingApplicationID(t *testing.T) {
	w := NewTaskWorker(&stubNotificationService{})

	err := w.HandleTask(&queue.Task{ID: "t1", Type: queue.TaskTypeSendConfirmation})
	require.Error(t, err)
	// The error must not be retryable: retrying cannot supply the id.
	assert.Contains(t, err.Error(), "invalid")
}

func TestHandleDispatchTasks(t *testing.T) {
	notifications := &stubNotificationService{}
	w := NewTaskWorker(notifications)

	require.NoError(t, w.HandleTask(&queue.Task{ID: "t1", Type: queue.TaskTypeSendReminder}))
	require.NoError(t, w.HandleTask(&queue.Task{ID: "t2", Type: queue.TaskTypeSendStep}))

	assert.Equal(t, 1, notifications.reminderRuns)
	assert.Equal(t, 1, notifications.stepRuns)
}

func TestHandleUnknownTaskType(t *testing.T) {
	w := NewTaskWorker(&stubNotificationService{})

	err := w.HandleTask(&queue.Task{ID: "t1", Type: "resize_images"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid task type")
}
