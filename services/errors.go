package services

import (
	"context"
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeInputRejected    ErrorType = "input_rejected"
	ErrorTypeOutputRejected   ErrorType = "output_rejected"
	ErrorTypeSynthesisFailure ErrorType = "synthesis_failure"
	ErrorTypeUpstreamTimeout  ErrorType = "upstream_timeout"
	ErrorTypeUpstreamError    ErrorType = "upstream_error"
	ErrorTypeInvalidRating    ErrorType = "invalid_rating"
	ErrorTypeValidation       ErrorType = "validation"
	ErrorTypeNotFound         ErrorType = "not_found"
	ErrorTypeInternal         ErrorType = "internal"
)

// RejectionReason explains why a guardrail refused a query or an answer.
type RejectionReason string

const (
	ReasonTooShort           RejectionReason = "TooShort"
	ReasonTooLong            RejectionReason = "TooLong"
	ReasonOffTopic           RejectionReason = "OffTopic"
	ReasonPromptInjection    RejectionReason = "PromptInjection"
	ReasonIncompleteSolution RejectionReason = "IncompleteSolution"
	ReasonOffTopicOutput     RejectionReason = "OffTopicOutput"
)

// DetailReason is the Details key holding a RejectionReason.
const DetailReason = "reason"

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables

var (
	// Guardrail Errors
	ErrInputRejected  = NewDomainError(ErrorTypeInputRejected, "query rejected", nil)
	ErrOutputRejected = NewDomainError(ErrorTypeOutputRejected, "answer rejected", nil)

	// Upstream Errors
	ErrSynthesisFailure = NewDomainError(ErrorTypeSynthesisFailure, "could not synthesize an answer", nil)
	ErrUpstreamTimeout  = NewDomainError(ErrorTypeUpstreamTimeout, "upstream service timed out", nil)
	ErrUpstreamError    = NewDomainError(ErrorTypeUpstreamError, "upstream service failed", nil)

	// Feedback Errors
	ErrInvalidRating = NewDomainError(ErrorTypeInvalidRating, "rating must be between 1 and 5", nil)

	// Validation Errors
	ErrInvalidInput = NewDomainError(ErrorTypeValidation, "invalid input", nil)

	// Internal Errors
	ErrInternal      = NewDomainError(ErrorTypeInternal, "internal server error", nil)
	ErrDatabaseError = NewDomainError(ErrorTypeInternal, "database error", nil)
	ErrStoreClosed   = NewDomainError(ErrorTypeInternal, "feedback store is closed", nil)
)

// ErrNoEvidence signals that a retrieval tier produced nothing usable.
// The router consumes it to advance tiers and never returns it.
var ErrNoEvidence = errors.New("no evidence found")

// NewInputRejected builds an input guardrail rejection carrying its reason.
func NewInputRejected(reason RejectionReason, message string) *DomainError {
	return NewDomainError(ErrorTypeInputRejected, message, nil).WithDetail(DetailReason, reason)
}

// NewOutputRejected builds an output guardrail rejection carrying its reason.
func NewOutputRejected(reason RejectionReason, message string) *DomainError {
	return NewDomainError(ErrorTypeOutputRejected, message, nil).WithDetail(DetailReason, reason)
}

// Error type checking helper functions

// IsInputRejectedError checks if an error is an input guardrail rejection
func IsInputRejectedError(err error) bool {
	return hasType(err, ErrorTypeInputRejected)
}

// IsOutputRejectedError checks if an error is an output guardrail rejection
func IsOutputRejectedError(err error) bool {
	return hasType(err, ErrorTypeOutputRejected)
}

// IsSynthesisFailureError checks if an error is a synthesis failure
func IsSynthesisFailureError(err error) bool {
	return hasType(err, ErrorTypeSynthesisFailure)
}

// IsUpstreamTimeoutError checks if an error is an upstream timeout
func IsUpstreamTimeoutError(err error) bool {
	return hasType(err, ErrorTypeUpstreamTimeout)
}

// IsUpstreamError checks if an error is an upstream provider failure
func IsUpstreamError(err error) bool {
	return hasType(err, ErrorTypeUpstreamError)
}

// IsInvalidRatingError checks if an error is an invalid rating error
func IsInvalidRatingError(err error) bool {
	return hasType(err, ErrorTypeInvalidRating)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return hasType(err, ErrorTypeNotFound)
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return hasType(err, ErrorTypeInternal)
}

func hasType(err error, t ErrorType) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == t
	}
	return false
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// GetRejectionReason returns the guardrail reason attached to err, if any.
func GetRejectionReason(err error) RejectionReason {
	details := GetErrorDetails(err)
	if details == nil {
		return ""
	}
	reason, _ := details[DetailReason].(RejectionReason)
	return reason
}

// GetErrorMessage returns the user-facing message of a domain error.
func GetErrorMessage(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return ""
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}

// WrapUpstream classifies a failed call to an external collaborator.
// Deadline expiry becomes UpstreamTimeout; anything else becomes UpstreamError.
func WrapUpstream(message string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewDomainError(ErrorTypeUpstreamTimeout, message, err)
	}
	return NewDomainError(ErrorTypeUpstreamError, message, err)
}
