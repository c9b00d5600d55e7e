package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lapply/lapply/internal/entity"
)

func TestFindCancelableFiltersAndOrders(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	later := now.Add(48 * time.Hour)
	sooner := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	apps := newFakeApplicationRepo(
		&entity.Application{ID: "future-late", OrganizationID: "org1", UserID: "user1",
			Status: entity.ApplicationStatusApplied, SlotAt: &later, Plan: "90min"},
		&entity.Application{ID: "future-soon", OrganizationID: "org1", UserID: "user1",
			Status: entity.ApplicationStatusApplied, SlotAt: &sooner},
		&entity.Application{ID: "past", OrganizationID: "org1", UserID: "user1",
			Status: entity.ApplicationStatusApplied, SlotAt: &past},
		&entity.Application{ID: "canceled", OrganizationID: "org1", UserID: "user1",
			Status: entity.ApplicationStatusCanceled, SlotAt: &later},
		&entity.Application{ID: "other-user", OrganizationID: "org1", UserID: "user2",
			Status: entity.ApplicationStatusApplied, SlotAt: &later},
		&entity.Application{ID: "other-org", OrganizationID: "org2", UserID: "user1",
			Status: entity.ApplicationStatusApplied, SlotAt: &later},
	)

	svc := NewApplicationQueryService(apps, newFakeEventRepo())

	result, err := svc.FindCancelable(context.Background(), "user1", "org1", now)
	require.NoError(t, err)

	require.Len(t, result, 2)
	assert.Equal(t, "future-soon", result[0].ID)
	assert.Equal(t, "future-late", result[1].ID)
	assert.Equal(t, "90min", result[1].Plan)
}

func TestFindCancelableRequiresIdentifiers(t *testing.T) {
	svc := NewApplicationQueryService(newFakeApplicationRepo(), newFakeEventRepo())

	_, err := svc.FindCancelable(context.Background(), "", "org1", time.Now())
	assert.ErrorIs(t, err, entity.ErrInvalidInput)

	_, err = svc.FindCancelable(context.Background(), "user1", "", time.Now())
	assert.ErrorIs(t, err, entity.ErrInvalidInput)
}

func TestFindCancelableReflectsCurrentState(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	slotAt := now.Add(24 * time.Hour)

	apps := newFakeApplicationRepo(&entity.Application{
		ID: "app1", OrganizationID: "org1", UserID: "user1",
		EventID: "ev1", SlotID: "s1",
		Status: entity.ApplicationStatusApplied, SlotAt: &slotAt,
	})
	events := newFakeEventRepo(&entity.Event{
		ID:    "ev1",
		Slots: []entity.EventSlot{{ID: "s1", SlotAt: slotAt, MaxCapacity: 5, CurrentCapacity: 1}},
	})
	queries := NewApplicationQueryService(apps, events)
	cancels := NewCancellationService(apps, &fakeReminderRepo{}, &fakeStepRepo{}, events, nil)

	before, err := queries.FindCancelable(context.Background(), "user1", "org1", now)
	require.NoError(t, err)
	require.Len(t, before, 1)

	_, err = cancels.Cancel(context.Background(), "app1")
	require.NoError(t, err)

	// The next query sees the cancellation, no cached snapshot.
	after, err := queries.FindCancelable(context.Background(), "user1", "org1", now)
	require.NoError(t, err)
	assert.Empty(t, after)
}

func TestGetEventAvailability(t *testing.T) {
	events := newFakeEventRepo(&entity.Event{
		ID:    "ev1",
		Title: "Autumn open day",
		Slots: []entity.EventSlot{{ID: "s1", MaxCapacity: 10, CurrentCapacity: 4}},
	})
	svc := NewApplicationQueryService(newFakeApplicationRepo(), events)

	event, err := svc.GetEventAvailability(context.Background(), "ev1")
	require.NoError(t, err)
	assert.Equal(t, 4, event.Slots[0].CurrentCapacity)

	_, err = svc.GetEventAvailability(context.Background(), "missing")
	assert.ErrorIs(t, err, entity.ErrEventNotFound)
}
