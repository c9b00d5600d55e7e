package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lapply/lapply/internal/entity"
)

func testOrgRepo() *fakeOrganizationRepo {
	return &fakeOrganizationRepo{orgs: map[string]*entity.Organization{
		"org1": {ID: "org1", Name: "Studio A", LineChannelAccessToken: "token-org1"},
	}}
}

func TestDispatchDueReminders(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	reminders := &fakeReminderRepo{reminders: []*entity.Reminder{
		{ID: "due", ApplicationID: "app1", OrganizationID: "org1", UserID: "user1",
			Message: "明日のご予約のお知らせです。", ScheduledAt: now.Add(-time.Minute)},
		{ID: "not-due", ApplicationID: "app1", OrganizationID: "org1", UserID: "user1",
			ScheduledAt: now.Add(time.Hour)},
		{ID: "canceled", ApplicationID: "app1", OrganizationID: "org1", UserID: "user1",
			ScheduledAt: now.Add(-time.Minute), Canceled: true},
	}}
	pusher := &fakePusher{}

	svc := NewNotificationService(newFakeApplicationRepo(), reminders, &fakeStepRepo{}, testOrgRepo(), pusher, 100)
	svc.(*notificationService).now = func() time.Time { return now }

	sent, err := svc.DispatchDueReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	require.Len(t, pusher.pushes, 1)
	assert.Equal(t, "token-org1", pusher.pushes[0].token)
	assert.Equal(t, "user1", pusher.pushes[0].to)
	assert.Equal(t, "明日のご予約のお知らせです。", pusher.pushes[0].text)

	// The dispatched reminder is stamped; the others are untouched.
	assert.NotNil(t, reminders.reminders[0].SentAt)
	assert.Nil(t, reminders.reminders[1].SentAt)
	assert.Nil(t, reminders.reminders[2].SentAt)
}

func TestDispatchDueRemindersPushFailureRetriesNextSweep(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	reminders := &fakeReminderRepo{reminders: []*entity.Reminder{
		{ID: "due", ApplicationID: "app1", OrganizationID: "org1", UserID: "user1",
			ScheduledAt: now.Add(-time.Minute)},
	}}
	pusher := &fakePusher{err: errors.New("LINE unavailable")}

	svc := NewNotificationService(newFakeApplicationRepo(), reminders, &fakeStepRepo{}, testOrgRepo(), pusher, 100)
	svc.(*notificationService).now = func() time.Time { return now }

	sent, err := svc.DispatchDueReminders(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)

	// No sent_at stamp, so the reminder stays due.
	assert.Nil(t, reminders.reminders[0].SentAt)

	pusher.err = nil
	sent, err = svc.DispatchDueReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestDispatchDueStepDeliveries(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	steps := &fakeStepRepo{steps: []*entity.StepDelivery{
		{ID: "due", ApplicationID: "app1", OrganizationID: "org1", UserID: "user1",
			StepNumber: 1, Status: entity.StepDeliveryStatusPending, ScheduledAt: now.Add(-time.Minute)},
		{ID: "skipped", ApplicationID: "app1", OrganizationID: "org1", UserID: "user1",
			StepNumber: 2, Status: entity.StepDeliveryStatusSkipped, ScheduledAt: now.Add(-time.Minute)},
	}}
	pusher := &fakePusher{}

	svc := NewNotificationService(newFakeApplicationRepo(), &fakeReminderRepo{}, steps, testOrgRepo(), pusher, 100)
	svc.(*notificationService).now = func() time.Time { return now }

	sent, err := svc.DispatchDueStepDeliveries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	assert.Equal(t, entity.StepDeliveryStatusSent, steps.steps[0].Status)
	assert.Equal(t, entity.StepDeliveryStatusSkipped, steps.steps[1].Status)
}

func TestSendCancellationConfirmation(t *testing.T) {
	slotAt := time.Date(2026, 9, 10, 14, 0, 0, 0, time.UTC)

	apps := newFakeApplicationRepo(&entity.Application{
		ID: "app1", OrganizationID: "org1", UserID: "user1",
		Status: entity.ApplicationStatusCanceled, Plan: "60min", SlotAt: &slotAt,
	})
	pusher := &fakePusher{}

	svc := NewNotificationService(apps, &fakeReminderRepo{}, &fakeStepRepo{}, testOrgRepo(), pusher, 100)

	err := svc.SendCancellationConfirmation(context.Background(), "app1")
	require.NoError(t, err)

	require.Len(t, pusher.pushes, 1)
	assert.Equal(t, "2026/09/10 14:00（60min）のご予約のキャンセルを受け付けました。", pusher.pushes[0].text)
	assert.Equal(t, "token-org1", pusher.pushes[0].token)
}

func TestSendCancellationConfirmationUnknownOrganization(t *testing.T) {
	apps := newFakeApplicationRepo(&entity.Application{
		ID: "app1", OrganizationID: "org-unknown", UserID: "user1",
		Status: entity.ApplicationStatusCanceled,
	})

	svc := NewNotificationService(apps, &fakeReminderRepo{}, &fakeStepRepo{}, testOrgRepo(), &fakePusher{}, 100)

	err := svc.SendCancellationConfirmation(context.Background(), "app1")
	assert.ErrorIs(t, err, entity.ErrOrganizationNotFound)
}
