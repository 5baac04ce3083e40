package services

import (
	"errors"
	"fmt"
	"time"

	apperrors "github.com/testforge/exam-service/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrUnauthorized     = errors.New("unauthorized access")
	ErrForbidden        = errors.New("forbidden - insufficient permissions")
	ErrValidationFailed = errors.New("validation failed")
	ErrConflict         = errors.New("resource conflict")

	// Test specific errors
	ErrTestNotFound     = errors.New("test not found")
	ErrTestAccessDenied = errors.New("access denied to test")
	ErrTestNotAvailable = errors.New("test is not available at this time")
	ErrTestNotShared    = errors.New("test is not shared publicly")

	// Progress specific errors
	ErrProgressNotFound = errors.New("no saved progress found")

	// Result specific errors
	ErrResultNotFound   = errors.New("result not found")
	ErrAlreadySubmitted = errors.New("test already submitted")

	// Grading specific errors
	ErrScoreOutOfRange  = errors.New("score is outside the allowed range")
	ErrNoSuchQuestion   = errors.New("no question at the given coordinates")
	ErrGradingForbidden = errors.New("permission denied for grading")

	// Code execution errors
	ErrUnsupportedLanguage = errors.New("unsupported coding language")
	ErrExecutionFailed     = errors.New("code execution service failed")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// SubmissionConflictError carries the existing submission's redacted summary
// so the caller can short-circuit to an "already submitted" view instead of
// retrying.
type SubmissionConflictError struct {
	Existing SubmissionSummary `json:"existing"`
}

func (e *SubmissionConflictError) Error() string {
	return fmt.Sprintf("test %d already submitted by %s at %s",
		e.Existing.TestID, e.Existing.StudentEmail, e.Existing.SubmittedAt.Format(time.RFC3339))
}

func (e *SubmissionConflictError) Unwrap() error {
	return ErrAlreadySubmitted
}

type PermissionError struct {
	UserID     string `json:"user_id"`
	ResourceID uint   `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %d - %s",
		pe.UserID, pe.Action, pe.Resource, pe.ResourceID, pe.Reason)
}

// UpstreamError wraps a failure of an external collaborator (the code
// execution judge). It is non-fatal to the attempt: saving and submitting
// never depend on it.
type UpstreamError struct {
	Service string
	Err     error
}

func (ue *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s failure: %v", ue.Service, ue.Err)
}

func (ue *UpstreamError) Unwrap() error {
	return ErrExecutionFailed
}

// ===== ERROR HELPERS =====

func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrTestNotFound) ||
		errors.Is(err, ErrProgressNotFound) ||
		errors.Is(err, ErrResultNotFound) ||
		errors.Is(err, ErrNoSuchQuestion)
}

// IsUnauthorized checks if error represents an "unauthorized" condition
func IsUnauthorized(err error) bool {
	if errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrTestAccessDenied) ||
		errors.Is(err, ErrGradingForbidden) {
		return true
	}
	var pe *PermissionError
	return errors.As(err, &pe)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrScoreOutOfRange) ||
		errors.Is(err, ErrUnsupportedLanguage) {
		return true
	}
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return true
	}
	var single *ValidationError
	return errors.As(err, &single)
}

// IsConflict checks if error represents a resource conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrAlreadySubmitted)
}

// IsUnavailable checks if error means the test cannot be taken right now
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrTestNotAvailable) ||
		errors.Is(err, ErrTestNotShared)
}

// IsUpstream checks if error came from an external collaborator
func IsUpstream(err error) bool {
	return errors.Is(err, ErrExecutionFailed)
}
