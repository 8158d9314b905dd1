package scheduling

import (
	"errors"
	"fmt"
)

// Kind classifies a failure surfaced to callers of the resolver.
type Kind string

const (
	KindNotFound         Kind = "NOT_FOUND"
	KindInvalidInput     Kind = "INVALID_INPUT"
	KindCalendarConflict Kind = "CALENDAR_CONFLICT"
	KindLocalConflict    Kind = "LOCAL_CONFLICT"
	KindUpstreamFailure  Kind = "UPSTREAM_FAILURE"
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Kind, so errors.Is(err, ErrLocalConflict) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Msg == "" && t.Err == nil
}

var (
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrInvalidInput     = &Error{Kind: KindInvalidInput}
	ErrCalendarConflict = &Error{Kind: KindCalendarConflict}
	ErrLocalConflict    = &Error{Kind: KindLocalConflict}
	ErrUpstreamFailure  = &Error{Kind: KindUpstreamFailure}
)

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Invalid(format string, args ...any) error {
	return &Error{Kind: KindInvalidInput, Msg: fmt.Sprintf(format, args...)}
}

func Upstream(msg string, err error) error {
	return &Error{Kind: KindUpstreamFailure, Msg: msg, Err: err}
}

// KindOf returns the Kind carried by err, or "" if err is not a scheduling error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
