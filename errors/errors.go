package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError is the unified error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the HTTP status associated with the error, 0 if none.
	HTTPStatus int `json:"-"`
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

// Is reports whether target is an AppError with the same code, so that
// stderrors.Is(err, errors.New(code, "", 0)) style sentinels work.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !stderrors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
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

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Filter errors ---

// InvalidOperator creates an error for an operator outside the supported set.
func InvalidOperator(op string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidOperator, Message: fmt.Sprintf("Unsupported comparison operator %q.", op),
		Details: map[string]any{"operator": op},
	}
}

// InvalidOperandArity creates an error for a scalar/list mismatch.
func InvalidOperandArity(op, want string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidOperandArity, Message: fmt.Sprintf("Operator %s expects %s operand.", op, want),
		Details: map[string]any{"operator": op, "expected": want},
	}
}

// InvalidOperand creates an error for a literal of an unsupported type.
func InvalidOperand(value any, reason string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidOperand, Message: fmt.Sprintf("Invalid operand %v: %s", value, reason),
		Details: map[string]any{"type": fmt.Sprintf("%T", value)},
	}
}

// InvalidAttributePath creates an error for a malformed attribute path.
func InvalidAttributePath(path, reason string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidAttributePath, Message: fmt.Sprintf("Invalid attribute path %q: %s", path, reason),
		Details: map[string]any{"path": path},
	}
}

// InsufficientOperands creates an error for a combinator with too few children.
func InsufficientOperands(combinator string, want, got int) *AppError {
	return &AppError{
		Code:    ErrCodeInsufficientOperands,
		Message: fmt.Sprintf("%s requires %s, got %d.", combinator, pluralOperands(want), got),
		Details: map[string]any{"combinator": combinator, "got": got},
	}
}

// InvalidFilterSyntax creates an error for unparsable filter text.
func InvalidFilterSyntax(pos int, reason string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidFilterSyntax, Message: fmt.Sprintf("Invalid filter at offset %d: %s", pos, reason),
		Details: map[string]any{"offset": pos},
	}
}

func pluralOperands(n int) string {
	if n == 1 {
		return "exactly 1 operand"
	}
	return fmt.Sprintf("at least %d operands", n)
}

// --- Model errors ---

// MalformedPayload creates an error for a payload that cannot be decoded.
func MalformedPayload(reason string) *AppError {
	return &AppError{
		Code: ErrCodeMalformedPayload, Message: fmt.Sprintf("Malformed payload: %s", reason),
	}
}

// AttributeNotFound creates an error for a missing attribute.
func AttributeNotFound(typeName, name string) *AppError {
	return &AppError{
		Code: ErrCodeAttributeNotFound, Message: fmt.Sprintf("Attribute %q not found on %s.", name, typeName),
		Details: map[string]any{"attribute": name, "type": typeName},
	}
}

// --- Resource errors ---

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		HTTPStatus: http.StatusNotFound, Details: details,
	}
}

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Details: details,
	}
}

// Validation creates a new AppError for struct validation errors.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// Infrastructure creates an error for a server response this client cannot
// interpret. Usually a misconfigured aggregator or a broken API convention.
func Infrastructure(reason string) *AppError {
	return &AppError{
		Code: ErrCodeInfrastructure, Message: reason,
		HTTPStatus: http.StatusBadGateway,
	}
}

// Internal creates a new AppError for an unexpected failure.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
	}
}

// ExternalServiceError creates a new AppError for an error from the remote API.
func ExternalServiceError(service string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeExternalService, Message: fmt.Sprintf("The %s service encountered an error.", service),
		HTTPStatus: http.StatusBadGateway, Retryable: true,
		Details: map[string]any{"service": service}, Cause: cause,
	}
}
