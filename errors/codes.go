package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Filter construction errors. Raised when an expression is built, never
// at render time.
const (
	// ErrCodeInvalidOperator indicates a comparison operator outside the fixed set.
	ErrCodeInvalidOperator ErrorCode = "INVALID_OPERATOR"
	// ErrCodeInvalidOperandArity indicates a scalar/list mismatch with the operator.
	ErrCodeInvalidOperandArity ErrorCode = "INVALID_OPERAND_ARITY"
	// ErrCodeInvalidOperand indicates a literal of an unsupported type.
	ErrCodeInvalidOperand ErrorCode = "INVALID_OPERAND"
	// ErrCodeInvalidAttributePath indicates a malformed dotted attribute path.
	ErrCodeInvalidAttributePath ErrorCode = "INVALID_ATTRIBUTE_PATH"
	// ErrCodeInsufficientOperands indicates a combinator with the wrong child count.
	ErrCodeInsufficientOperands ErrorCode = "INSUFFICIENT_OPERANDS"
	// ErrCodeInvalidFilterSyntax indicates filter text that cannot be parsed.
	ErrCodeInvalidFilterSyntax ErrorCode = "INVALID_FILTER_SYNTAX"
)

// Dynamic model errors
const (
	// ErrCodeMalformedPayload indicates a payload that is not a decodable object.
	ErrCodeMalformedPayload ErrorCode = "MALFORMED_PAYLOAD"
	// ErrCodeAttributeNotFound indicates a read of an attribute that is not present.
	ErrCodeAttributeNotFound ErrorCode = "ATTRIBUTE_NOT_FOUND"
)

// Resource errors
const (
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeInfrastructure indicates the data aggregator answered with
	// something this client cannot understand (wrong content type, broken
	// conventions).
	ErrCodeInfrastructure ErrorCode = "INFRASTRUCTURE_ERROR"
)

// Transport errors (retryable)
const (
	// ErrCodeServiceUnavailable indicates the service is temporarily unavailable.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeExternalService indicates an error from the remote API.
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	// ErrCodeInternal indicates an unexpected client-side failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeExternalService:    true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
