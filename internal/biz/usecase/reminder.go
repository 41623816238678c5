package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nagadaibot/internal/biz/domain"
	"nagadaibot/internal/biz/repo"
)

// Scheduler is the timer port the usecase drives. The delivery engine
// implements it; tests substitute a recorder.
type Scheduler interface {
	Schedule(id int64, dueAt time.Time)
	Cancel(id int64)
	Reschedule(id int64, dueAt time.Time)
}

// ReminderUsecase owns the reminder lifecycle: create-and-arm, list, delete,
// snooze.
type ReminderUsecase struct {
	reminderRepo repo.ReminderRepo
	scheduler    Scheduler
}

// NewReminderUsecase creates a new reminder usecase.
func NewReminderUsecase(reminderRepo repo.ReminderRepo, scheduler Scheduler) *ReminderUsecase {
	return &ReminderUsecase{
		reminderRepo: reminderRepo,
		scheduler:    scheduler,
	}
}

// Create persists a reminder and arms its timer. The durable write comes
// first; if arming fails the periodic sweep still picks the reminder up, so
// the pair does not need a transaction.
func (uc *ReminderUsecase) Create(ctx context.Context, ownerID, chatID, text string, dueAt time.Time) (*domain.Reminder, error) {
	reminder, err := uc.reminderRepo.Add(ctx, ownerID, chatID, text, dueAt)
	if err != nil {
		return nil, fmt.Errorf("add reminder: %w", err)
	}
	uc.scheduler.Schedule(reminder.ID, reminder.DueAt)
	return reminder, nil
}

// ListUpcoming returns the owner's future Active reminders, soonest first.
func (uc *ReminderUsecase) ListUpcoming(ctx context.Context, ownerID string) ([]*domain.Reminder, error) {
	reminders, err := uc.reminderRepo.ListActiveForOwner(ctx, ownerID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	return reminders, nil
}

// Delete removes the owner's reminder and drops its timer. Returns
// domain.ErrNotFound when the id does not exist or belongs to someone else.
func (uc *ReminderUsecase) Delete(ctx context.Context, id int64, ownerID string) error {
	deleted, err := uc.reminderRepo.Delete(ctx, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	if !deleted {
		return domain.ErrNotFound
	}
	uc.scheduler.Cancel(id)
	return nil
}

// Snooze moves the reminder's due time and re-arms its timer. The snooze
// button arrives on the fired message, so the record is usually already
// Delivered; the store transitions it back to Active.
func (uc *ReminderUsecase) Snooze(ctx context.Context, id int64, ownerID string, newDueAt time.Time) error {
	if err := uc.reminderRepo.UpdateDueAt(ctx, id, ownerID, newDueAt); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("update due time: %w", err)
	}
	uc.scheduler.Reschedule(id, newDueAt)
	return nil
}
