package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies capacity-core failures independently of transport.
type ErrorKind string

const (
	KindNotFound             ErrorKind = "not_found"
	KindInvalidArgument      ErrorKind = "invalid_argument"
	KindInvalidState         ErrorKind = "invalid_state"
	KindInsufficientCapacity ErrorKind = "insufficient_capacity"
	KindConflict             ErrorKind = "conflict"
	KindForbidden            ErrorKind = "forbidden"
)

// Sentinels for errors.Is; every *Error matches the sentinel of its kind.
var (
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrInvalidArgument      = &Error{Kind: KindInvalidArgument}
	ErrInvalidState         = &Error{Kind: KindInvalidState}
	ErrInsufficientCapacity = &Error{Kind: KindInsufficientCapacity}
	ErrConflict             = &Error{Kind: KindConflict}
	ErrForbidden            = &Error{Kind: KindForbidden}
)

// Error is returned by the capacity and donation services.
// Current and Required are set for InvalidState, Available for InsufficientCapacity.
type Error struct {
	Kind      ErrorKind
	Message   string
	Current   DonationStatus
	Required  []DonationStatus
	Available int
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Is matches on kind so callers can write errors.Is(err, domain.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func InvalidArgument(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// InvalidState reports a transition attempted from current; action is the verb ("confirm", "cancel").
func InvalidState(action string, current DonationStatus, required ...DonationStatus) *Error {
	msg := fmt.Sprintf("Cannot %s donation with status: %s", action, current)
	if len(required) > 0 {
		names := make([]string, len(required))
		for i, r := range required {
			names[i] = string(r)
		}
		msg += fmt.Sprintf(" (requires: %s)", strings.Join(names, " or "))
	}
	return &Error{
		Kind:     KindInvalidState,
		Message:  msg,
		Current:  current,
		Required: required,
	}
}

func InsufficientCapacity(available int) *Error {
	return &Error{
		Kind:      KindInsufficientCapacity,
		Message:   fmt.Sprintf("Insufficient capacity. Available: %d plates", available),
		Available: available,
	}
}

func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...interface{}) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or "" when err is not a domain error.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
