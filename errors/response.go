package errors

import (
	stderrors "errors"
)

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

// CodeOf returns the ErrorCode carried by err, or "" when err is not an AppError.
func CodeOf(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ""
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// IsInvalidOperator reports whether err is an INVALID_OPERATOR error.
func IsInvalidOperator(err error) bool { return HasCode(err, ErrCodeInvalidOperator) }

// IsInvalidOperandArity reports whether err is an INVALID_OPERAND_ARITY error.
func IsInvalidOperandArity(err error) bool { return HasCode(err, ErrCodeInvalidOperandArity) }

// IsInsufficientOperands reports whether err is an INSUFFICIENT_OPERANDS error.
func IsInsufficientOperands(err error) bool { return HasCode(err, ErrCodeInsufficientOperands) }

// IsMalformedPayload reports whether err is a MALFORMED_PAYLOAD error.
func IsMalformedPayload(err error) bool { return HasCode(err, ErrCodeMalformedPayload) }

// IsAttributeNotFound reports whether err is an ATTRIBUTE_NOT_FOUND error.
func IsAttributeNotFound(err error) bool { return HasCode(err, ErrCodeAttributeNotFound) }

// IsNotFound reports whether err is a NOT_FOUND error.
func IsNotFound(err error) bool { return HasCode(err, ErrCodeNotFound) }

// IsInfrastructure reports whether err is an INFRASTRUCTURE_ERROR.
func IsInfrastructure(err error) bool { return HasCode(err, ErrCodeInfrastructure) }
