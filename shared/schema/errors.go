package schema

import "fmt"

// ErrorCode is the machine-readable error taxonomy surfaced by the API.
type ErrorCode string

const (
	// ErrCodeConfigMissing: no LLM profile is fully configured. Fatal to
	// requests that require a backend; the missing keys are listed verbatim.
	ErrCodeConfigMissing ErrorCode = "CONFIGURATION_MISSING"
	// ErrCodeBackendUnavailable: the chosen backend failed or timed out.
	// Recovered internally by the fallback path, reported as a warning only.
	ErrCodeBackendUnavailable ErrorCode = "BACKEND_UNAVAILABLE"
	// ErrCodeContractViolation: the backend responded but the payload failed
	// shape or range validation. Also recovered by the fallback path.
	ErrCodeContractViolation ErrorCode = "CONTRACT_VIOLATION"
	// ErrCodeInputInvalid: the request itself is unusable (empty code,
	// blank context, oversized file). Surfaced directly, nothing generated.
	ErrCodeInputInvalid ErrorCode = "INPUT_INVALID"
	// ErrCodeInternal: unexpected failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// RequestError is an error with a taxonomy code, returned to API clients as
// {success:false, error, error_code}.
type RequestError struct {
	Code    ErrorCode
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// InvalidInput builds an ErrCodeInputInvalid error.
func InvalidInput(format string, args ...any) *RequestError {
	return &RequestError{Code: ErrCodeInputInvalid, Message: fmt.Sprintf(format, args...)}
}

// ErrorResponse is the wire shape for failed requests.
type ErrorResponse struct {
	Success            bool      `json:"success"`
	Error              string    `json:"error"`
	ErrorCode          ErrorCode `json:"error_code"`
	ProcessingMessages []string  `json:"processing_messages,omitempty"`
}
