package scheduler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lapply/lapply/internal/service"
)

// Scheduler periodically dispatches due reminders and step deliveries.
type Scheduler struct {
	notifications service.NotificationService
	interval      time.Duration
}

func NewScheduler(notifications service.NotificationService, interval time.Duration) *Scheduler {
	return &Scheduler{
		notifications: notifications,
		interval:      interval,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.notifications.DispatchDueReminders(ctx); err != nil {
				logrus.WithError(err).Error("reminder dispatch failed")
			}
			if _, err := s.notifications.DispatchDueStepDeliveries(ctx); err != nil {
				logrus.WithError(err).Error("step delivery dispatch failed")
			}
		case <-ctx.Done():
			return
		}
	}
}
