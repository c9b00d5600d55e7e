package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	repository "github.com/lapply/lapply/internal/database/postgres"
	"github.com/lapply/lapply/pkg/line"
)

type notificationService struct {
	applicationRepo  repository.ApplicationRepository
	reminderRepo     repository.ReminderRepository
	stepRepo         repository.StepDeliveryRepository
	organizationRepo repository.OrganizationRepository
	pusher           LinePusher
	batchSize        int
	now              func() time.Time
}

func NewNotificationService(
	applicationRepo repository.ApplicationRepository,
	reminderRepo repository.ReminderRepository,
	stepRepo repository.StepDeliveryRepository,
	organizationRepo repository.OrganizationRepository,
	pusher LinePusher,
	batchSize int,
) NotificationService {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &notificationService{
		applicationRepo:  applicationRepo,
		reminderRepo:     reminderRepo,
		stepRepo:         stepRepo,
		organizationRepo: organizationRepo,
		pusher:           pusher,
		batchSize:        batchSize,
		now:              time.Now,
	}
}

// DispatchDueReminders pushes every due, un-canceled reminder and stamps
// sent_at. A send failure skips the stamp so the next sweep retries it.
func (s *notificationService) DispatchDueReminders(ctx context.Context) (int, error) {
	now := s.now()
	reminders, err := s.reminderRepo.GetDue(ctx, now, s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to load due reminders: %w", err)
	}

	sent := 0
	for _, reminder := range reminders {
		if err := s.push(ctx, reminder.OrganizationID, reminder.UserID, reminder.Message); err != nil {
			logrus.WithError(err).WithField("reminder_id", reminder.ID).Error("reminder push failed")
			continue
		}
		if err := s.reminderRepo.MarkSent(ctx, reminder.ID, s.now()); err != nil {
			logrus.WithError(err).WithField("reminder_id", reminder.ID).Error("failed to mark reminder sent")
			continue
		}
		sent++
	}

	if sent > 0 {
		logrus.WithField("count", sent).Info("reminders dispatched")
	}
	return sent, nil
}

// DispatchDueStepDeliveries pushes due pending drip messages and marks
// them sent.
func (s *notificationService) DispatchDueStepDeliveries(ctx context.Context) (int, error) {
	now := s.now()
	deliveries, err := s.stepRepo.GetDue(ctx, now, s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to load due step deliveries: %w", err)
	}

	sent := 0
	for _, delivery := range deliveries {
		if err := s.push(ctx, delivery.OrganizationID, delivery.UserID, delivery.Message); err != nil {
			logrus.WithError(err).WithField("step_delivery_id", delivery.ID).Error("step delivery push failed")
			continue
		}
		if err := s.stepRepo.MarkSent(ctx, delivery.ID, s.now()); err != nil {
			logrus.WithError(err).WithField("step_delivery_id", delivery.ID).Error("failed to mark step delivery sent")
			continue
		}
		sent++
	}

	if sent > 0 {
		logrus.WithField("count", sent).Info("step deliveries dispatched")
	}
	return sent, nil
}

// SendCancellationConfirmation pushes the "your booking was canceled"
// message for an application.
func (s *notificationService) SendCancellationConfirmation(ctx context.Context, applicationID string) error {
	app, err := s.applicationRepo.GetByID(ctx, applicationID)
	if err != nil {
		return err
	}

	message := "ご予約のキャンセルを受け付けました。"
	if app.SlotAt != nil {
		message = fmt.Sprintf("%s（%s）のご予約のキャンセルを受け付けました。",
			app.SlotAt.Format("2006/01/02 15:04"), app.Plan)
		if app.Plan == "" {
			message = fmt.Sprintf("%sのご予約のキャンセルを受け付けました。",
				app.SlotAt.Format("2006/01/02 15:04"))
		}
	}

	return s.push(ctx, app.OrganizationID, app.UserID, message)
}

func (s *notificationService) push(ctx context.Context, organizationID, userID, text string) error {
	org, err := s.organizationRepo.GetByID(ctx, organizationID)
	if err != nil {
		return err
	}

	if err := s.pusher.Push(ctx, org.LineChannelAccessToken, userID, line.NewTextMessage(text)); err != nil {
		return fmt.Errorf("failed to push LINE message: %w", err)
	}
	return nil
}
