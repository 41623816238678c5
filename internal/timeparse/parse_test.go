package timeparse

import (
	"testing"
	"time"
)

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("load location %s: %v", name, err)
	}
	return loc
}

func TestParseAbsolute_Valid(t *testing.T) {
	loc := mustLoc(t, "Europe/Kyiv")
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, loc)

	tests := []struct {
		input string
		want  time.Time
	}{
		// Later today
		{"18:30", time.Date(2025, 3, 10, 18, 30, 0, 0, loc)},
		{"23:59", time.Date(2025, 3, 10, 23, 59, 0, 0, loc)},
		// Already elapsed, rolls to tomorrow
		{"09:15", time.Date(2025, 3, 11, 9, 15, 0, 0, loc)},
		{"00:00", time.Date(2025, 3, 11, 0, 0, 0, 0, loc)},
		// Equal to now also rolls forward
		{"12:00", time.Date(2025, 3, 11, 12, 0, 0, 0, loc)},
		// Whitespace and single-digit hour
		{" 7:05 ", time.Date(2025, 3, 11, 7, 5, 0, 0, loc)},
	}

	for _, tt := range tests {
		got, err := ParseAbsolute(tt.input, now)
		if err != nil {
			t.Errorf("ParseAbsolute(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseAbsolute(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseAbsolute_Invalid(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	inputs := []string{
		"25:00",
		"12:70",
		"abc",
		"-1:30",
		"12:-5",
		"12",
		"12:30:45",
		"1a:30",
		"12:3b",
		"",
	}

	for _, input := range inputs {
		_, err := ParseAbsolute(input, now)
		if err == nil {
			t.Errorf("ParseAbsolute(%q) expected error, got none", input)
			continue
		}
		if _, ok := err.(*ParseError); !ok {
			t.Errorf("ParseAbsolute(%q) error type = %T, want *ParseError", input, err)
		}
	}
}

func TestParseRelative_Valid(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		input string
		want  time.Duration
	}{
		{"1г 30хв", 90 * time.Minute},
		{"2 години", 2 * time.Hour},
		{"45хв", 45 * time.Minute},
		{"45 хвилин", 45 * time.Minute},
		{"1 хвилина", time.Minute},
		{"3 год", 3 * time.Hour},
		{"10 годин", 10 * time.Hour},
		{"1г", time.Hour},
		{"нагадай через 2г 15хв будь ласка", 2*time.Hour + 15*time.Minute},
		// Case-insensitive unit words
		{"1Г 30ХВ", 90 * time.Minute},
		// No cap on quantities
		{"9999 годин", 9999 * time.Hour},
	}

	for _, tt := range tests {
		got, err := ParseRelative(tt.input, now)
		if err != nil {
			t.Errorf("ParseRelative(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if want := now.Add(tt.want); !got.Equal(want) {
			t.Errorf("ParseRelative(%q) = %v, want %v", tt.input, got, want)
		}
	}
}

func TestParseRelative_Invalid(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	inputs := []string{
		"hello",
		"",
		"30",         // digits without a unit
		"г 30",       // unit without digits
		"0г 0хв",     // both quantities zero
		"30 minutes", // wrong language
	}

	for _, input := range inputs {
		_, err := ParseRelative(input, now)
		if err == nil {
			t.Errorf("ParseRelative(%q) expected error, got none", input)
			continue
		}
		if _, ok := err.(*ParseError); !ok {
			t.Errorf("ParseRelative(%q) error type = %T, want *ParseError", input, err)
		}
	}
}

func TestFormatDue(t *testing.T) {
	loc := mustLoc(t, "Europe/Kyiv")
	at := time.Date(2025, 3, 10, 18, 5, 0, 0, loc)

	if got, want := FormatDue(at, loc), "10.03.2025 18:05"; got != want {
		t.Errorf("FormatDue = %q, want %q", got, want)
	}

	// A UTC instant renders in the target location
	utc := at.UTC()
	if got, want := FormatDue(utc, loc), "10.03.2025 18:05"; got != want {
		t.Errorf("FormatDue(utc) = %q, want %q", got, want)
	}
}
