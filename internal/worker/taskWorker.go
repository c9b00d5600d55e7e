package worker

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/lapply/lapply/internal/service"
	"github.com/lapply/lapply/pkg/queue"
)

// TaskWorker consumes queued notification tasks and dispatches them over
// LINE.
type TaskWorker struct {
	notifications service.NotificationService
}

func NewTaskWorker(notifications service.NotificationService) *TaskWorker {
	return &TaskWorker{notifications: notifications}
}

// HandleTask is the queue subscriber callback.
func (w *TaskWorker) HandleTask(task *queue.Task) error {
	ctx := context.Background()

	switch task.Type {
	case queue.TaskTypeSendConfirmation:
		applicationID := task.GetString("application_id")
		if applicationID == "" {
			return fmt.Errorf("invalid task %s: application_id is required", task.ID)
		}
		if err := w.notifications.SendCancellationConfirmation(ctx, applicationID); err != nil {
			return fmt.Errorf("failed to send cancellation confirmation: %w", err)
		}
		logrus.WithField("application_id", applicationID).Info("cancellation confirmation sent")
		return nil

	case queue.TaskTypeSendReminder:
		_, err := w.notifications.DispatchDueReminders(ctx)
		return err

	case queue.TaskTypeSendStep:
		_, err := w.notifications.DispatchDueStepDeliveries(ctx)
		return err

	default:
		return fmt.Errorf("invalid task type: %s", task.Type)
	}
}
