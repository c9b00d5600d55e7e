package entity

import "errors"

var (
	// Application errors
	ErrApplicationNotFound = errors.New("application not found")
	ErrAlreadyCanceled     = errors.New("application already canceled")
	ErrNotCancelable       = errors.New("application is not in a cancelable state")

	// Event / slot errors
	ErrEventNotFound = errors.New("event not found")
	ErrSlotNotFound  = errors.New("slot not found")

	// Organization errors
	ErrOrganizationNotFound = errors.New("organization not found")

	// General errors
	ErrInvalidInput = errors.New("invalid input")
)
