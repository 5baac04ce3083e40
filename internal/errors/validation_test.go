package errors

import (
	"testing"
)

func TestValidationError(t *testing.T) {
	err := NewValidationError("student_email", "is required", "")

	if err.Field != "student_email" {
		t.Errorf("Expected field to be 'student_email', got '%s'", err.Field)
	}

	if err.Message != "is required" {
		t.Errorf("Expected message to be 'is required', got '%s'", err.Message)
	}

	expected := "validation error on field 'student_email': is required"
	if err.Error() != expected {
		t.Errorf("Expected error message to be '%s', got '%s'", expected, err.Error())
	}
}

func TestValidationErrors(t *testing.T) {
	var errs ValidationErrors
	if errs.Error() != "validation failed" {
		t.Errorf("Expected 'validation failed' for empty errors, got '%s'", errs.Error())
	}

	errs = append(errs, *NewValidationError("score", "must be at least 0", -1))
	expected := "validation failed: score must be at least 0"
	if errs.Error() != expected {
		t.Errorf("Expected '%s' for single error, got '%s'", expected, errs.Error())
	}

	errs = append(errs, *NewValidationError("test_id", "is required", nil))
	expected = "validation failed: 2 field errors"
	if errs.Error() != expected {
		t.Errorf("Expected '%s' for multiple errors, got '%s'", expected, errs.Error())
	}
}

func TestNewValidationErrorWithRule(t *testing.T) {
	err := NewValidationErrorWithRule("language", "must be a supported coding language", "coding_language", "cobol")

	if err.Rule != "coding_language" {
		t.Errorf("Expected rule to be 'coding_language', got '%s'", err.Rule)
	}

	if err.Value != "cobol" {
		t.Errorf("Expected value to be 'cobol', got '%v'", err.Value)
	}
}
