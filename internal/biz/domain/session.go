package domain

import "time"

// SessionState is the position of an owner inside the reminder-creation
// dialog.
type SessionState int

const (
	StateIdle SessionState = iota
	StateAwaitingText
	StateAwaitingTimeChoice
	StateAwaitingAbsoluteTime
	StateAwaitingRelativeTime
	StateAwaitingSnoozeTime
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingText:
		return "awaiting_text"
	case StateAwaitingTimeChoice:
		return "awaiting_time_choice"
	case StateAwaitingAbsoluteTime:
		return "awaiting_absolute_time"
	case StateAwaitingRelativeTime:
		return "awaiting_relative_time"
	case StateAwaitingSnoozeTime:
		return "awaiting_snooze_time"
	default:
		return "unknown"
	}
}

// Session is the transient per-owner dialog state. It lives in memory only;
// an in-flight, uncommitted dialog is acceptable loss across restarts.
type Session struct {
	OwnerID           string
	ChatID            string
	State             SessionState
	DraftText         string
	PendingReminderID int64 // set while snoozing an existing reminder
	UpdatedAt         time.Time
}

// Reset clears the dialog back to idle, dropping any draft.
func (s *Session) Reset() {
	s.State = StateIdle
	s.DraftText = ""
	s.PendingReminderID = 0
	s.UpdatedAt = time.Now()
}

// Touch updates the session's activity time.
func (s *Session) Touch() {
	s.UpdatedAt = time.Now()
}

// IsStale reports whether the session sat idle longer than the timeout.
// A stale session is treated as a fresh idle one on next contact, so
// abandoned dialogs do not accumulate forever.
func (s *Session) IsStale(idleTimeout time.Duration) bool {
	if idleTimeout <= 0 {
		return false
	}
	return time.Since(s.UpdatedAt) > idleTimeout
}
