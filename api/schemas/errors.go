package schemas

import (
	"errors"
	"fmt"
)

// ErrorCode classifies workflow failures.
type ErrorCode string

const (
	ErrCodeElementNotFound           ErrorCode = "ELEMENT_NOT_FOUND"
	ErrCodePollTimeout               ErrorCode = "POLL_TIMEOUT"
	ErrCodeOtpNotReceived            ErrorCode = "OTP_NOT_RECEIVED"
	ErrCodeStepNotReached            ErrorCode = "STEP_NOT_REACHED"
	ErrCodeStepTransitionFailed      ErrorCode = "STEP_TRANSITION_FAILED"
	ErrCodeInsufficientUploadTargets ErrorCode = "INSUFFICIENT_UPLOAD_TARGETS"
	ErrCodeFieldFillFailed           ErrorCode = "FIELD_FILL_FAILED"
)

// Error carries a code, the thing it concerns (a field, a step, a mailbox)
// and an optional cause.
type Error struct {
	Code    ErrorCode
	Subject string
	Err     error
}

// Sentinels for errors.Is. They match any *Error with the same code.
var (
	ErrElementNotFound           = &Error{Code: ErrCodeElementNotFound}
	ErrPollTimeout               = &Error{Code: ErrCodePollTimeout}
	ErrOtpNotReceived            = &Error{Code: ErrCodeOtpNotReceived}
	ErrStepNotReached            = &Error{Code: ErrCodeStepNotReached}
	ErrStepTransitionFailed      = &Error{Code: ErrCodeStepTransitionFailed}
	ErrInsufficientUploadTargets = &Error{Code: ErrCodeInsufficientUploadTargets}
	ErrFieldFillFailed           = &Error{Code: ErrCodeFieldFillFailed}
)

func NewError(code ErrorCode, subject string, err error) *Error {
	return &Error{Code: code, Subject: subject, Err: err}
}

func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Subject != "" {
		msg += ": " + e.Subject
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on code only, so errors.Is(err, ErrPollTimeout) works for any
// poll timeout regardless of subject.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the code of the outermost *Error in err's chain, or "" if
// there is none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Errorf is a shorthand for NewError with a formatted cause.
func Errorf(code ErrorCode, subject, format string, args ...interface{}) *Error {
	return NewError(code, subject, fmt.Errorf(format, args...))
}
