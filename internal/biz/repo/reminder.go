package repo

import (
	"context"
	"time"

	"nagadaibot/internal/biz/domain"
)

// ReminderRepo is the reminder persistence interface (SQLite behind it in
// production, mocks in tests). The persisted due time is the source of truth
// for scheduling; in-memory timers are only an optimization on top of it.
type ReminderRepo interface {
	// Add creates an Active reminder and returns it with the assigned id.
	Add(ctx context.Context, ownerID, chatID, text string, dueAt time.Time) (*domain.Reminder, error)

	// Get returns a reminder by id, or domain.ErrNotFound.
	Get(ctx context.Context, id int64) (*domain.Reminder, error)

	// ListActiveForOwner returns the owner's Active reminders with a due
	// time strictly after now, ordered by due time ascending.
	ListActiveForOwner(ctx context.Context, ownerID string, now time.Time) ([]*domain.Reminder, error)

	// ListDue returns all Active reminders with a due time at or before now.
	ListDue(ctx context.Context, now time.Time) ([]*domain.Reminder, error)

	// ListActive returns all Active reminders, for re-arming timers on
	// startup.
	ListActive(ctx context.Context) ([]*domain.Reminder, error)

	// MarkDelivered transitions Active -> Delivered. Calling it on an
	// already-Delivered reminder is a successful no-op; a missing id is
	// domain.ErrNotFound.
	MarkDelivered(ctx context.Context, id int64) error

	// UpdateDueAt moves the reminder's due time and sets it Active again.
	// Snoozing a reminder that already fired puts it back on the schedule.
	// The owner must match and the reminder must be Active or Delivered;
	// otherwise domain.ErrNotFound.
	UpdateDueAt(ctx context.Context, id int64, ownerID string, dueAt time.Time) error

	// Delete removes the reminder if the owner matches. It reports whether a
	// row was removed; mismatch and not-found both return false without
	// error.
	Delete(ctx context.Context, id int64, ownerID string) (bool, error)

	// Close closes the backing store.
	Close() error
}
