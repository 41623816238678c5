package data

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"nagadaibot/internal/biz/domain"
	"nagadaibot/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// reminderRepo implements the Reminder repository on SQLite
type reminderRepo struct {
	db *sql.DB
}

// NewReminderRepo creates a new Reminder repository
func NewReminderRepo(dbPath string) (repo.ReminderRepo, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS reminders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			owner_id TEXT NOT NULL,
			chat_id TEXT NOT NULL,
			text TEXT NOT NULL,
			due_at INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			created_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	// Index for the due-time sweep and the per-owner listing
	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_reminders_status_due_at ON reminders(status, due_at)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_reminders_owner_id ON reminders(owner_id)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &reminderRepo{db: db}, nil
}

// Add creates a new Active reminder and returns it with the assigned id
func (r *reminderRepo) Add(ctx context.Context, ownerID, chatID, text string, dueAt time.Time) (*domain.Reminder, error) {
	createdAt := time.Now()
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO reminders (owner_id, chat_id, text, due_at, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, ownerID, chatID, text, dueAt.Unix(), domain.StatusActive, createdAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to insert reminder: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get reminder id: %w", err)
	}

	return &domain.Reminder{
		ID:        id,
		OwnerID:   ownerID,
		ChatID:    chatID,
		Text:      text,
		DueAt:     time.Unix(dueAt.Unix(), 0),
		Status:    domain.StatusActive,
		CreatedAt: time.Unix(createdAt.Unix(), 0),
	}, nil
}

// Get returns a reminder by id
func (r *reminderRepo) Get(ctx context.Context, id int64) (*domain.Reminder, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, owner_id, chat_id, text, due_at, status, created_at
		FROM reminders
		WHERE id = ?
	`, id)

	reminder, err := scanReminder(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query reminder: %w", err)
	}
	return reminder, nil
}

// ListActiveForOwner returns the owner's future Active reminders, soonest first
func (r *reminderRepo) ListActiveForOwner(ctx context.Context, ownerID string, now time.Time) ([]*domain.Reminder, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, chat_id, text, due_at, status, created_at
		FROM reminders
		WHERE owner_id = ? AND status = ? AND due_at > ?
		ORDER BY due_at ASC
	`, ownerID, domain.StatusActive, now.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	defer rows.Close()

	return collectReminders(rows)
}

// ListDue returns Active reminders whose due time has arrived
func (r *reminderRepo) ListDue(ctx context.Context, now time.Time) ([]*domain.Reminder, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, chat_id, text, due_at, status, created_at
		FROM reminders
		WHERE status = ? AND due_at <= ?
		ORDER BY due_at ASC
	`, domain.StatusActive, now.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to list due reminders: %w", err)
	}
	defer rows.Close()

	return collectReminders(rows)
}

// ListActive returns all Active reminders
func (r *reminderRepo) ListActive(ctx context.Context) ([]*domain.Reminder, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, chat_id, text, due_at, status, created_at
		FROM reminders
		WHERE status = ?
		ORDER BY due_at ASC
	`, domain.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list active reminders: %w", err)
	}
	defer rows.Close()

	return collectReminders(rows)
}

// MarkDelivered transitions Active -> Delivered. Idempotent: marking an
// already-Delivered reminder succeeds without touching the row again.
func (r *reminderRepo) MarkDelivered(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE reminders SET status = ? WHERE id = ? AND status = ?
	`, domain.StatusDelivered, id, domain.StatusActive)
	if err != nil {
		return fmt.Errorf("failed to mark delivered: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check mark delivered: %w", err)
	}
	if affected == 0 {
		// Either already Delivered (fine) or missing (not found)
		var status string
		err := r.db.QueryRowContext(ctx, `SELECT status FROM reminders WHERE id = ?`, id).Scan(&status)
		if err == sql.ErrNoRows {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check reminder status: %w", err)
		}
	}
	return nil
}

// UpdateDueAt moves the reminder's due time and re-activates it, scoped to
// the owner. Snoozing a fired (Delivered) reminder transitions it back to
// Active so the scheduler picks it up again.
func (r *reminderRepo) UpdateDueAt(ctx context.Context, id int64, ownerID string, dueAt time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE reminders SET due_at = ?, status = ?
		WHERE id = ? AND owner_id = ? AND status IN (?, ?)
	`, dueAt.Unix(), domain.StatusActive, id, ownerID, domain.StatusActive, domain.StatusDelivered)
	if err != nil {
		return fmt.Errorf("failed to update due time: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check due time update: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes the reminder if the owner matches
func (r *reminderRepo) Delete(ctx context.Context, id int64, ownerID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM reminders WHERE id = ? AND owner_id = ?
	`, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("failed to delete reminder: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check delete: %w", err)
	}
	return affected > 0, nil
}

// Close closes the database connection
func (r *reminderRepo) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReminder(row rowScanner) (*domain.Reminder, error) {
	var reminder domain.Reminder
	var dueAt, createdAt int64
	var status string
	err := row.Scan(&reminder.ID, &reminder.OwnerID, &reminder.ChatID, &reminder.Text, &dueAt, &status, &createdAt)
	if err != nil {
		return nil, err
	}
	reminder.DueAt = time.Unix(dueAt, 0)
	reminder.CreatedAt = time.Unix(createdAt, 0)
	reminder.Status = domain.ReminderStatus(status)
	return &reminder, nil
}

func collectReminders(rows *sql.Rows) ([]*domain.Reminder, error) {
	var reminders []*domain.Reminder
	for rows.Next() {
		reminder, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		reminders = append(reminders, reminder)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read reminders: %w", err)
	}
	return reminders, nil
}
