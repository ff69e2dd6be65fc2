package core

import "fmt"

// Error codes categorizing dispatch failures surfaced to the model.
const (
	// CodeValidation marks an input schema mismatch; the handler was not invoked.
	CodeValidation = "VALIDATION_ERROR"
	// CodeExecution marks an error (or recovered panic) raised by a handler.
	CodeExecution = "EXECUTION_ERROR"
	// CodeResponseValidation marks a result or agent final text failing its
	// declared response schema.
	CodeResponseValidation = "RESPONSE_VALIDATION_ERROR"
	// CodeResolution marks an unknown tool or sub-call name.
	CodeResolution = "RESOLUTION_ERROR"
)

// ErrorPayload is the structured error value returned to the model as a tool
// result when a call fails and no callback recovers it. It is never raised as
// an engine-level error.
type ErrorPayload struct {
	Error   string `json:"error"`             // Error code for categorization
	Message string `json:"message,omitempty"` // Human readable detail
}

// CallError represents a dispatch failure for a requested call. It carries the
// failing call name and a category code so policy callbacks can inspect it
// before it degrades to an ErrorPayload.
type CallError struct {
	Call    string // Name of the call that failed
	Code    string // Error code for categorization
	Message string // Error message
}

func (e *CallError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("call error [%s] in %s: %s", e.Code, e.Call, e.Message)
	}
	return fmt.Sprintf("call error in %s: %s", e.Call, e.Message)
}

// NewCallError creates a new CallError with the specified details.
func NewCallError(call, message, code string) *CallError {
	return &CallError{Call: call, Message: message, Code: code}
}

// Payload converts the error into the model-visible structured result.
func (e *CallError) Payload() ErrorPayload {
	return ErrorPayload{Error: e.Code, Message: e.Message}
}
