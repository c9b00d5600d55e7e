package entity

import (
	"time"
)

type ApplicationStatus string

const (
	// Legacy LINE-flow vocabulary.
	ApplicationStatusApplied  ApplicationStatus = "applied"
	ApplicationStatusCanceled ApplicationStatus = "canceled"

	// Dashboard-flow vocabulary. Stored rows using these values exist and
	// must keep round-tripping unchanged.
	ApplicationStatusPending   ApplicationStatus = "pending"
	ApplicationStatusConfirmed ApplicationStatus = "confirmed"
	ApplicationStatusCancelled ApplicationStatus = "cancelled"
)

// IsCancelable reports whether the cancellation flow may transition this
// status. Only the legacy "applied" state is cancelable.
func (s ApplicationStatus) IsCancelable() bool {
	return s == ApplicationStatusApplied
}

// IsCanceled reports whether the status already counts as canceled in
// either vocabulary.
func (s ApplicationStatus) IsCanceled() bool {
	return s == ApplicationStatusCanceled || s == ApplicationStatusCancelled
}

type Application struct {
	ID             string            `json:"id" db:"id"`
	OrganizationID string            `json:"organization_id" db:"organization_id"`
	UserID         string            `json:"user_id" db:"user_id"`
	EventID        string            `json:"event_id,omitempty" db:"event_id"`
	SlotID         string            `json:"slot_id,omitempty" db:"slot_id"`
	Status         ApplicationStatus `json:"status" db:"status"`
	Plan           string            `json:"plan,omitempty" db:"plan"`
	SlotAt         *time.Time        `json:"slot_at,omitempty" db:"slot_at"`
	CanceledAt     *time.Time        `json:"canceled_at,omitempty" db:"canceled_at"`
	SlotReleased   bool              `json:"slot_released" db:"slot_released"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
}

// HasSlot reports whether the application references a bookable slot.
// Legacy records may lack the event/slot pair; they skip capacity release.
func (a *Application) HasSlot() bool {
	return a.EventID != "" && a.SlotID != ""
}

// CancelableApplication is the projection returned to users choosing a
// booking to cancel.
type CancelableApplication struct {
	ID        string    `json:"id"`
	SlotAt    time.Time `json:"slot_at"`
	Plan      string    `json:"plan,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
