package chat

import "errors"

// Code is a machine-readable error code carried over both transports.
type Code string

const (
	CodeUnknown         Code = "UNKNOWN"
	CodeValidation      Code = "VALIDATION_ERROR"
	CodeNotInRoom       Code = "NOT_IN_ROOM"
	CodeRoomNotFound    Code = "ROOM_NOT_FOUND"
	CodeSessionNotFound Code = "SESSION_NOT_FOUND"
	CodeRateLimited     Code = "RATE_LIMITED"
)

// Error is a classified failure. Two errors match under errors.Is when their
// codes are equal, so callers compare against the sentinels below.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrValidation      = &Error{Code: CodeValidation, Message: "invalid input"}
	ErrNotInRoom       = &Error{Code: CodeNotInRoom, Message: "Not in any room"}
	ErrRoomNotFound    = &Error{Code: CodeRoomNotFound, Message: "Room not found"}
	ErrSessionNotFound = &Error{Code: CodeSessionNotFound, Message: "Session not found"}
	ErrRateLimited     = &Error{Code: CodeRateLimited, Message: "rate limit exceeded"}
)

// NewError builds an error of the given kind with a caller-facing message.
func NewError(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// CodeOf extracts the code of a classified error, or CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}
