package repository

import (
	"context"
	"time"

	"github.com/lapply/lapply/internal/entity"
)

// ApplicationRepository owns application records and their status.
type ApplicationRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Application, error)

	// TransitionToCanceled moves an `applied` application to `canceled`
	// and stamps canceled_at. The stored status is read-checked inside the
	// same transaction as the write; a concurrent double-cancel loses with
	// entity.ErrAlreadyCanceled (status already canceled in either
	// vocabulary) or entity.ErrNotCancelable (pending/confirmed).
	TransitionToCanceled(ctx context.Context, id string, now time.Time) error

	// ClaimSlotRelease flips slot_released from false to true and reports
	// whether this call won the flag. Exactly one claimant may decrement
	// the slot capacity for an application.
	ClaimSlotRelease(ctx context.Context, id string) (bool, error)
	// ResetSlotRelease returns the claim after a failed release so a retry
	// can attempt it again.
	ResetSlotRelease(ctx context.Context, id string) error

	// FindCancelable returns the user's applied, future applications for
	// one tenant, ordered by slot time ascending.
	FindCancelable(ctx context.Context, userID, organizationID string, now time.Time) ([]*entity.Application, error)

	// FindCanceledWithPendingWork returns ids of canceled applications
	// that still have un-canceled reminders or pending step deliveries.
	FindCanceledWithPendingWork(ctx context.Context, limit int) ([]string, error)

	GetByOrganization(ctx context.Context, organizationID string, limit, offset int) ([]*entity.Application, error)
}

// ReminderRepository owns reminder records scheduled against applications.
type ReminderRepository interface {
	// CancelPending flips canceled=true on every un-canceled reminder of
	// the application in one statement and returns the number mutated.
	CancelPending(ctx context.Context, applicationID string) (int64, error)

	GetByApplication(ctx context.Context, applicationID string) ([]*entity.Reminder, error)
	GetDue(ctx context.Context, now time.Time, limit int) ([]*entity.Reminder, error)
	MarkSent(ctx context.Context, id string, at time.Time) error
}

// StepDeliveryRepository owns drip-sequence delivery records.
type StepDeliveryRepository interface {
	// SkipPending flips status pending->skipped for every pending delivery
	// of the application in one statement and returns the number mutated.
	SkipPending(ctx context.Context, applicationID string) (int64, error)

	GetByApplication(ctx context.Context, applicationID string) ([]*entity.StepDelivery, error)
	GetDue(ctx context.Context, now time.Time, limit int) ([]*entity.StepDelivery, error)
	MarkSent(ctx context.Context, id string, at time.Time) error
}

// EventRepository owns events and their embedded slot capacity counters.
type EventRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Event, error)

	// ReleaseSlot decrements the slot's current capacity by exactly one
	// inside a transaction scoped to the event row. A missing event or
	// slot, or a capacity already at zero, is a no-op and returns
	// (nil, nil) — capacity never goes negative.
	ReleaseSlot(ctx context.Context, eventID, slotID string) (*entity.SlotRelease, error)
}

// OrganizationRepository resolves tenants and their LINE credentials.
type OrganizationRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Organization, error)
}
