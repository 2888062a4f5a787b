// Package errors provides standardized error handling for the assistant pipeline
// and its workflow integration.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeClassificationFailed ErrorCode = "CLASSIFICATION_FAILED"
	ErrCodeGenerationFailed     ErrorCode = "GENERATION_FAILED"
	ErrCodeResolutionFailed     ErrorCode = "RESOLUTION_FAILED"
	ErrCodeForbidden            ErrorCode = "FORBIDDEN"
	ErrCodeNotFound             ErrorCode = "NOT_FOUND"
	ErrCodeSessionExpired       ErrorCode = "SESSION_EXPIRED"
	ErrCodeValidationFailed     ErrorCode = "VALIDATION_FAILED"
	ErrCodeConflict             ErrorCode = "CONFLICT"
	ErrCodeExecutionFailed      ErrorCode = "EXECUTION_FAILED"
	ErrCodeSynthesisFailed      ErrorCode = "SYNTHESIS_FAILED"
	ErrCodeUsageLimitExceeded   ErrorCode = "USAGE_LIMIT_EXCEEDED"
	ErrCodeLLMTimeout           ErrorCode = "LLM_TIMEOUT"
	ErrCodeStoreUnavailable     ErrorCode = "STORE_UNAVAILABLE"
	ErrCodeInternal             ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewClassificationFailedError is recovered locally by the classifier; it is only logged.
func NewClassificationFailedError(err error) *StandardError {
	return newError(ErrCodeClassificationFailed, "Intent classification failed", err.Error(), true)
}

func NewGenerationFailedError(details string) *StandardError {
	return newError(ErrCodeGenerationFailed, "Could not build an operation for the request", details, false)
}

func NewResolutionFailedError(reference string) *StandardError {
	e := newError(ErrCodeResolutionFailed, "Referenced item not found", fmt.Sprintf("reference: %s", reference), false)
	e.Metadata = map[string]interface{}{"reference": reference}
	return e
}

func NewForbiddenError(details string) *StandardError {
	return newError(ErrCodeForbidden, "Access denied", details, false)
}

func NewNotFoundError(collection string) *StandardError {
	return newError(ErrCodeNotFound, "No matching records", fmt.Sprintf("collection: %s", collection), false)
}

func NewSessionExpiredError() *StandardError {
	return newError(ErrCodeSessionExpired, "Session expired", "", false)
}

func NewValidationFailedError(details string) *StandardError {
	return newError(ErrCodeValidationFailed, "Validation failed", details, false)
}

func NewConflictError(details string) *StandardError {
	return newError(ErrCodeConflict, "Record already exists", details, false)
}

func NewExecutionFailedError(collection string, err error) *StandardError {
	return newError(ErrCodeExecutionFailed, "Store operation failed",
		fmt.Sprintf("collection: %s, error: %s", collection, err.Error()), true)
}

func NewSynthesisFailedError(err error) *StandardError {
	return newError(ErrCodeSynthesisFailed, "Response synthesis failed", err.Error(), true)
}

func NewUsageLimitExceededError(details string) *StandardError {
	return newError(ErrCodeUsageLimitExceeded, "Usage limit exceeded", details, false)
}

func NewLLMTimeoutError() *StandardError {
	return newError(ErrCodeLLMTimeout, "LLM call timed out", "call exceeded configured budget", true)
}

func NewStoreUnavailableError(err error) *StandardError {
	return newError(ErrCodeStoreUnavailable, "Store unavailable", err.Error(), true)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false)
}

// ==========================
// 4. Mapping Tables
// ==========================

// userMessages holds the only phrasing that may reach an end user for each code.
var userMessages = map[ErrorCode]string{
	ErrCodeForbidden:          "You don't have permission to do that for this restaurant.",
	ErrCodeNotFound:           "I couldn't find anything matching that request.",
	ErrCodeResolutionFailed:   "I couldn't find that item on the menu.",
	ErrCodeSessionExpired:     "Your session has expired. Please sign in again.",
	ErrCodeGenerationFailed:   "Sorry, I could not understand that request. Could you rephrase it?",
	ErrCodeValidationFailed:   "Some required details are missing or invalid. Please check and try again.",
	ErrCodeConflict:           "That already exists.",
	ErrCodeUsageLimitExceeded: "You've reached the assistant usage limit. Please try again later.",
	ErrCodeLLMTimeout:         "The assistant took too long to respond. Please try again.",
}

const genericUserMessage = "Something went wrong while processing your request. Please try again."

// UserMessage returns user-safe phrasing for a code. Unknown codes get a generic sentence.
func UserMessage(code ErrorCode) string {
	if msg, ok := userMessages[code]; ok {
		return msg
	}
	return genericUserMessage
}

// BPMNErrorMapping maps internal codes to the error codes modeled in the BPMN process.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeForbidden:          "ASSISTANT_FORBIDDEN",
	ErrCodeUsageLimitExceeded: "ASSISTANT_USAGE_LIMIT",
	ErrCodeGenerationFailed:   "ASSISTANT_NOT_UNDERSTOOD",
	ErrCodeStoreUnavailable:   "ASSISTANT_STORE_UNAVAILABLE",
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeStoreUnavailable, ErrCodeExecutionFailed:
		return 3
	case ErrCodeLLMTimeout:
		return 1
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandard extracts a *StandardError from an error chain, or wraps err as INTERNAL_ERROR.
func AsStandard(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// CodeOf returns the code carried by err, or INTERNAL_ERROR.
func CodeOf(err error) ErrorCode {
	return AsStandard(err).Code
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case code == ErrCodeForbidden || code == ErrCodeSessionExpired || code == ErrCodeUsageLimitExceeded:
		return "AUTH"
	case strings.Contains(codeStr, "CLASSIFICATION") || strings.Contains(codeStr, "GENERATION") ||
		strings.Contains(codeStr, "SYNTHESIS") || strings.Contains(codeStr, "LLM"):
		return "AI"
	case strings.Contains(codeStr, "STORE") || strings.Contains(codeStr, "EXECUTION"):
		return "DATABASE"
	case strings.Contains(codeStr, "VALIDATION") || code == ErrCodeConflict:
		return "VALIDATION"
	case code == ErrCodeNotFound || code == ErrCodeResolutionFailed:
		return "LOOKUP"
	default:
		return "OTHER"
	}
}
