package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// CallbackType tags a button payload. The wire encoding "<type>:<param>" is
// shared with existing clients and must not change.
type CallbackType string

const (
	CallbackTimeType       CallbackType = "time_type"
	CallbackDeleteReminder CallbackType = "delete_reminder"
	CallbackSnoozeReminder CallbackType = "snooze_reminder"
)

// Params for CallbackTimeType.
const (
	TimeTypeSpecific = "specific"
	TimeTypeDelay    = "delay"
)

// ErrUnknownCallback reports a payload whose type tag is not recognized.
type ErrUnknownCallback struct {
	Payload string
}

func (e *ErrUnknownCallback) Error() string {
	return "unknown callback payload " + strconv.Quote(e.Payload)
}

// Callback is a decoded button press.
type Callback struct {
	Type  CallbackType
	Param string
}

// Encode renders the wire form "<type>:<param>".
func (c Callback) Encode() string {
	return string(c.Type) + ":" + c.Param
}

// ReminderID parses the param as a decimal reminder id.
func (c Callback) ReminderID() (int64, error) {
	id, err := strconv.ParseInt(c.Param, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("callback param %q is not a reminder id: %w", c.Param, err)
	}
	return id, nil
}

// ParseCallback decodes a button payload, validating the type tag at decode
// time rather than silently ignoring unknown tags.
func ParseCallback(payload string) (Callback, error) {
	typ, param, _ := strings.Cut(payload, ":")
	switch CallbackType(typ) {
	case CallbackTimeType, CallbackDeleteReminder, CallbackSnoozeReminder:
		return Callback{Type: CallbackType(typ), Param: param}, nil
	default:
		return Callback{}, &ErrUnknownCallback{Payload: payload}
	}
}

// DeleteCallback builds the payload for deleting a reminder.
func DeleteCallback(id int64) Callback {
	return Callback{Type: CallbackDeleteReminder, Param: strconv.FormatInt(id, 10)}
}

// SnoozeCallback builds the payload for snoozing a reminder.
func SnoozeCallback(id int64) Callback {
	return Callback{Type: CallbackSnoozeReminder, Param: strconv.FormatInt(id, 10)}
}
