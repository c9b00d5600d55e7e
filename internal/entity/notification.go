package entity

import (
	"time"
)

type ReminderType string

const (
	ReminderTypeDayBefore ReminderType = "day_before"
	ReminderTypeSameDay   ReminderType = "same_day"
	ReminderTypeCustom    ReminderType = "custom"
)

// Reminder is a scheduled one-off notification tied to an application.
// Reminders are never deleted; cancellation flips the canceled flag.
type Reminder struct {
	ID             string       `json:"id" db:"id"`
	ApplicationID  string       `json:"application_id" db:"application_id"`
	OrganizationID string       `json:"organization_id" db:"organization_id"`
	UserID         string       `json:"user_id" db:"user_id"`
	Type           ReminderType `json:"type" db:"type"`
	Message        string       `json:"message" db:"message"`
	ScheduledAt    time.Time    `json:"scheduled_at" db:"scheduled_at"`
	SentAt         *time.Time   `json:"sent_at,omitempty" db:"sent_at"`
	Canceled       bool         `json:"canceled" db:"canceled"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
}

type StepDeliveryStatus string

const (
	StepDeliveryStatusPending StepDeliveryStatus = "pending"
	StepDeliveryStatusSent    StepDeliveryStatus = "sent"
	StepDeliveryStatusSkipped StepDeliveryStatus = "skipped"
)

// StepDelivery is one message of a multi-step drip sequence tied to an
// application. Like reminders, deliveries are only ever flag-flipped.
type StepDelivery struct {
	ID             string             `json:"id" db:"id"`
	ApplicationID  string             `json:"application_id" db:"application_id"`
	OrganizationID string             `json:"organization_id" db:"organization_id"`
	UserID         string             `json:"user_id" db:"user_id"`
	StepNumber     int                `json:"step_number" db:"step_number"`
	Message        string             `json:"message" db:"message"`
	ScheduledAt    time.Time          `json:"scheduled_at" db:"scheduled_at"`
	SentAt         *time.Time         `json:"sent_at,omitempty" db:"sent_at"`
	Status         StepDeliveryStatus `json:"status" db:"status"`
	CreatedAt      time.Time          `json:"created_at" db:"created_at"`
}
