package domain

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a reminder does not exist or is not owned by
// the caller. Handlers translate it into a user-facing "not found" message.
var ErrNotFound = errors.New("reminder not found")

// ReminderStatus is the lifecycle state of a reminder. Cancelled is
// terminal; a Delivered reminder returns to Active when the user snoozes it
// from the fired message.
type ReminderStatus string

const (
	StatusActive    ReminderStatus = "active"
	StatusDelivered ReminderStatus = "delivered"
	StatusCancelled ReminderStatus = "cancelled"
)

// Reminder is the persistent reminder entity. All fields except Status and
// DueAt are immutable after creation; DueAt changes only through an explicit
// snooze update.
type Reminder struct {
	ID        int64
	OwnerID   string
	ChatID    string // where the reminder fires; kept so delivery survives restarts
	Text      string
	DueAt     time.Time
	Status    ReminderStatus
	CreatedAt time.Time
}

// IsActive reports whether the reminder may still fire.
func (r *Reminder) IsActive() bool {
	return r.Status == StatusActive
}
