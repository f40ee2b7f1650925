package program

import (
	"errors"
	"fmt"
)

// Error is a failure that aborts an instruction. Every Error leaves the
// store exactly as it was before the instruction began.
type Error struct {
	// Code identifies the error category. It is recorded as the receipt
	// outcome.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes program errors.
type ErrorCode string

const (
	// ErrCodeAuthorization indicates a missing or invalid signature, a signer
	// that does not own the record, or an account reference that does not
	// match its derived address.
	ErrCodeAuthorization ErrorCode = "AUTHORIZATION"

	// ErrCodeAddressCollision indicates the derived slot is already occupied.
	ErrCodeAddressCollision ErrorCode = "ADDRESS_COLLISION"

	// ErrCodeCounterOverflow indicates a post counter would leave its range.
	ErrCodeCounterOverflow ErrorCode = "COUNTER_OVERFLOW"

	// ErrCodeResource indicates the payer cannot fund slot creation.
	ErrCodeResource ErrorCode = "RESOURCE"

	// ErrCodeInvalidArgument indicates arguments that fail validation.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// ErrCodeAccountNotFound indicates a referenced record does not exist.
	ErrCodeAccountNotFound ErrorCode = "ACCOUNT_NOT_FOUND"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the program error code of err, or "" when err is not a
// program error.
func CodeOf(err error) ErrorCode {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// IsAuthorizationError returns true if the error is an authorization failure.
func IsAuthorizationError(err error) bool {
	return CodeOf(err) == ErrCodeAuthorization
}

// IsAddressCollisionError returns true if the derived slot was occupied.
func IsAddressCollisionError(err error) bool {
	return CodeOf(err) == ErrCodeAddressCollision
}

// IsCounterOverflowError returns true if a counter would have overflowed.
func IsCounterOverflowError(err error) bool {
	return CodeOf(err) == ErrCodeCounterOverflow
}

// IsResourceError returns true if slot creation could not be funded.
func IsResourceError(err error) bool {
	return CodeOf(err) == ErrCodeResource
}

// IsInvalidArgumentError returns true if the arguments failed validation.
func IsInvalidArgumentError(err error) bool {
	return CodeOf(err) == ErrCodeInvalidArgument
}

// IsAccountNotFoundError returns true if a referenced record is missing.
func IsAccountNotFoundError(err error) bool {
	return CodeOf(err) == ErrCodeAccountNotFound
}

// NewError creates an Error with a formatted message.
func NewError(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: cause}
}

// NewCounterOverflowError creates an Error for a counter at its limit.
func NewCounterOverflowError(counter string, value, limit uint64) *Error {
	return &Error{
		Code:    ErrCodeCounterOverflow,
		Message: fmt.Sprintf("%s cannot advance past %d", counter, limit),
		Details: map[string]string{
			"counter": counter,
			"value":   fmt.Sprintf("%d", value),
			"limit":   fmt.Sprintf("%d", limit),
		},
	}
}
