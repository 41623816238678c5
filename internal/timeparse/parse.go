// Package timeparse converts user-entered time text into absolute instants.
//
// Two fixed input shapes are supported: a 24-hour clock time ("18:30") and a
// delay written with Ukrainian unit words ("1г 30хв", "2 години"). Both
// functions are pure with respect to the `now` argument and do no I/O.
package timeparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ParseError reports malformed time input. It is recoverable: callers
// re-prompt the user instead of aborting the dialog.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return "invalid time input " + strconv.Quote(e.Input) + ": " + e.Reason
}

var (
	hoursRe   = regexp.MustCompile(`(?i)(\d+)\s*(?:г|год|година|години|годин)`)
	minutesRe = regexp.MustCompile(`(?i)(\d+)\s*(?:хв|хвилина|хвилини|хвилин)`)
)

// ParseAbsolute parses "HH:MM" against now's calendar day and location.
// A time of day that has already elapsed (<= now) rolls forward one
// calendar day.
func ParseAbsolute(text string, now time.Time) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(text), ":")
	if len(parts) != 2 {
		return time.Time{}, &ParseError{Input: text, Reason: "want HH:MM"}
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, &ParseError{Input: text, Reason: "hour is not a number"}
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, &ParseError{Input: text, Reason: "minute is not a number"}
	}
	if hour < 0 || hour > 23 {
		return time.Time{}, &ParseError{Input: text, Reason: "hour out of range"}
	}
	if minute < 0 || minute > 59 {
		return time.Time{}, &ParseError{Input: text, Reason: "minute out of range"}
	}

	due := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !due.After(now) {
		due = due.AddDate(0, 0, 1)
	}
	return due, nil
}

// ParseRelative parses a delay like "1г 30хв" or "45 хвилин". A missing unit
// contributes zero; if neither unit is present the input is rejected.
// Quantities are uncapped: a user asking for a reminder in 9999 hours gets
// one timer far in the future, which the store and sweep handle like any
// other reminder.
func ParseRelative(text string, now time.Time) (time.Time, error) {
	var hours, minutes int

	if m := hoursRe.FindStringSubmatch(text); m != nil {
		h, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, &ParseError{Input: text, Reason: "hour quantity is not a number"}
		}
		hours = h
	}
	if m := minutesRe.FindStringSubmatch(text); m != nil {
		min, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, &ParseError{Input: text, Reason: "minute quantity is not a number"}
		}
		minutes = min
	}

	if hours == 0 && minutes == 0 {
		return time.Time{}, &ParseError{Input: text, Reason: "no time units found"}
	}

	return now.Add(time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute), nil
}

// FormatDue renders a due time for user-facing messages (dd.mm.yyyy HH:MM).
func FormatDue(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("02.01.2006 15:04")
}
