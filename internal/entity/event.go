package entity

import (
	"time"
)

// EventSlot is one bookable date/time unit inside an event. Slots are
// embedded in the event row as a JSON list, not stored as rows of their
// own, so every capacity update rewrites the whole list.
type EventSlot struct {
	ID              string    `json:"id"`
	Label           string    `json:"label,omitempty"`
	SlotAt          time.Time `json:"slot_at"`
	MaxCapacity     int       `json:"max_capacity"`
	CurrentCapacity int       `json:"current_capacity"`
}

type Event struct {
	ID             string      `json:"id" db:"id"`
	OrganizationID string      `json:"organization_id" db:"organization_id"`
	Title          string      `json:"title" db:"title"`
	Slots          []EventSlot `json:"slots" db:"slots"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at" db:"updated_at"`
}

// FindSlot returns the index of the slot with the given id, or -1.
func (e *Event) FindSlot(slotID string) int {
	for i := range e.Slots {
		if e.Slots[i].ID == slotID {
			return i
		}
	}
	return -1
}

// SlotRelease reports the capacity change made by a release.
type SlotRelease struct {
	EventID  string `json:"event_id"`
	SlotID   string `json:"slot_id"`
	Previous int    `json:"previous"`
	Updated  int    `json:"updated"`
}
