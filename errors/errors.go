package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the unified error type of the engine.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// --- Constructors ---

// ArgumentInvalid creates an error for a rejected composition argument.
func ArgumentInvalid(arg, reason string) *AppError {
	details := make(map[string]any)
	if arg != "" {
		details["argument"] = arg
	}
	return &AppError{
		Code: ErrCodeArgumentInvalid, Message: fmt.Sprintf("Invalid argument: %s", reason),
		Details: details,
	}
}

// Validation creates an ArgumentInvalid error from a pre-formatted message.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeArgumentInvalid, Message: message}
}

// WorkerFault creates an error for a failure raised while a worker was
// evaluating the given stage (source, predicate or selector).
func WorkerFault(stage string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeWorkerFault, Message: fmt.Sprintf("The %s failed while processing an item.", stage),
		Details: map[string]any{"stage": stage}, Cause: cause,
	}
}

// OperationCanceled creates an error for a worker that observed cancellation.
func OperationCanceled(cause error) *AppError {
	return &AppError{
		Code: ErrCodeOperationCanceled, Message: "The operation was canceled.",
		Cause: cause,
	}
}

// ConsumerCanceled creates an error for an interrupted consumer wait.
func ConsumerCanceled(cause error) *AppError {
	return &AppError{
		Code: ErrCodeConsumerCanceled, Message: "Waiting for results was canceled.",
		Cause: cause,
	}
}

// --- Inspection ---

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of the first AppError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ""
}

// HasCode reports whether the first AppError in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
