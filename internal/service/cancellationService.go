package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	repository "github.com/lapply/lapply/internal/database/postgres"
	"github.com/lapply/lapply/internal/entity"
)

const (
	opTransition  = "transition_to_canceled"
	opReminders   = "cancel_pending_reminders"
	opSteps       = "skip_pending_step_deliveries"
	opReleaseSlot = "release_slot"
)

type cancellationService struct {
	applicationRepo repository.ApplicationRepository
	reminderRepo    repository.ReminderRepository
	stepRepo        repository.StepDeliveryRepository
	eventRepo       repository.EventRepository
	queue           TaskPublisher
	now             func() time.Time
}

// NewCancellationService creates the shared cancellation orchestrator.
// queue may be nil; the post-cancel confirmation push is then skipped.
func NewCancellationService(
	applicationRepo repository.ApplicationRepository,
	reminderRepo repository.ReminderRepository,
	stepRepo repository.StepDeliveryRepository,
	eventRepo repository.EventRepository,
	queue TaskPublisher,
) CancellationService {
	return &cancellationService{
		applicationRepo: applicationRepo,
		reminderRepo:    reminderRepo,
		stepRepo:        stepRepo,
		eventRepo:       eventRepo,
		queue:           queue,
		now:             time.Now,
	}
}

// Cancel performs the consistency sequence: status transition, reminder
// cancellation, step-delivery skipping, slot capacity release. Each step
// is idempotent, so the whole operation can be re-invoked after any
// failure; an already-canceled application re-runs steps 2-4 as repair.
func (s *cancellationService) Cancel(ctx context.Context, applicationID string) (*CancellationResult, error) {
	app, err := s.applicationRepo.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	result := &CancellationResult{ApplicationID: applicationID}

	err = s.applicationRepo.TransitionToCanceled(ctx, applicationID, s.now())
	switch {
	case err == nil:
		result.Outcome = OutcomeCanceled
		result.addOperation(opTransition, OperationOK, 1)
	case errors.Is(err, entity.ErrAlreadyCanceled):
		// Repair mode: the primary transition already happened. Finish
		// the side-effect steps instead of treating this as an error.
		result.Outcome = OutcomeAlreadyCanceled
		result.addOperation(opTransition, OperationNoop, 0)
	case errors.Is(err, entity.ErrNotCancelable):
		result.Outcome = OutcomeNotCancelable
		result.addOperation(opTransition, OperationSkipped, 0)
		return result, nil
	default:
		result.addOperation(opTransition, OperationFailed, 0)
		return result, fmt.Errorf("failed to transition application %s: %w", applicationID, err)
	}

	remindersCanceled, err := s.reminderRepo.CancelPending(ctx, applicationID)
	if err != nil {
		result.addOperation(opReminders, OperationFailed, 0)
		return result, fmt.Errorf("failed to cancel reminders for %s: %w", applicationID, err)
	}
	result.RemindersCanceled = remindersCanceled
	result.addOperation(opReminders, OperationOK, remindersCanceled)

	stepsSkipped, err := s.stepRepo.SkipPending(ctx, applicationID)
	if err != nil {
		result.addOperation(opSteps, OperationFailed, 0)
		return result, fmt.Errorf("failed to skip step deliveries for %s: %w", applicationID, err)
	}
	result.StepDeliveriesSkipped = stepsSkipped
	result.addOperation(opSteps, OperationOK, stepsSkipped)

	if err := s.releaseSlot(ctx, app, result); err != nil {
		return result, err
	}

	if result.Outcome == OutcomeCanceled {
		s.publishConfirmation(ctx, app)
	}

	return result, nil
}

// releaseSlot decrements the booked slot's capacity at most once per
// application. The slot_released flag on the application is claimed before
// the event row is touched; losing the claim means an earlier call already
// released this seat.
func (s *cancellationService) releaseSlot(ctx context.Context, app *entity.Application, result *CancellationResult) error {
	if !app.HasSlot() {
		// Legacy records without an event/slot reference skip capacity
		// release entirely.
		result.addOperation(opReleaseSlot, OperationSkipped, 0)
		return nil
	}

	claimed, err := s.applicationRepo.ClaimSlotRelease(ctx, app.ID)
	if err != nil {
		result.addOperation(opReleaseSlot, OperationFailed, 0)
		return fmt.Errorf("failed to claim slot release for %s: %w", app.ID, err)
	}
	if !claimed {
		result.addOperation(opReleaseSlot, OperationNoop, 0)
		return nil
	}

	release, err := s.eventRepo.ReleaseSlot(ctx, app.EventID, app.SlotID)
	if err != nil {
		// Return the claim so a retry can release the seat.
		if resetErr := s.applicationRepo.ResetSlotRelease(ctx, app.ID); resetErr != nil {
			logrus.WithError(resetErr).WithField("application_id", app.ID).
				Error("failed to reset slot release claim")
		}
		result.addOperation(opReleaseSlot, OperationFailed, 0)
		return fmt.Errorf("failed to release slot for %s: %w", app.ID, err)
	}

	if release == nil {
		// Missing event/slot or capacity already at zero. Logged by the
		// store; not an error.
		result.addOperation(opReleaseSlot, OperationNoop, 0)
		return nil
	}

	result.CapacityReleased = true
	result.addOperation(opReleaseSlot, OperationOK, 1)

	logrus.WithFields(logrus.Fields{
		"application_id": app.ID,
		"event_id":       release.EventID,
		"slot_id":        release.SlotID,
		"capacity":       release.Updated,
	}).Info("slot capacity released")

	return nil
}

// publishConfirmation queues the cancellation-confirmation push. Best
// effort: a queue failure never fails the cancellation itself.
func (s *cancellationService) publishConfirmation(ctx context.Context, app *entity.Application) {
	if s.queue == nil {
		return
	}

	task := &Task{
		ID:   fmt.Sprintf("%s_%s", TaskTypeSendConfirmation, uuid.NewString()),
		Type: TaskTypeSendConfirmation,
		Data: map[string]interface{}{
			"application_id":  app.ID,
			"organization_id": app.OrganizationID,
			"user_id":         app.UserID,
		},
		ExecuteAt:  s.now(),
		MaxRetries: 3,
	}

	if err := s.queue.Publish(ctx, task); err != nil {
		logrus.WithError(err).WithField("application_id", app.ID).
			Error("failed to queue cancellation confirmation")
	}
}
