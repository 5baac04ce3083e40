package utils

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/testforge/exam-service/internal/errors"
	"github.com/testforge/exam-service/internal/models"
)

// Validator wraps go-playground struct validation plus the domain checks
// that tags cannot express (answer-key/type agreement).
type Validator struct {
	structValidator *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()
	registerCustomValidators(v)
	return &Validator{structValidator: v}
}

// Validate runs struct-tag validation and converts field errors into the
// shared ValidationErrors type.
func (v *Validator) Validate(s interface{}) error {
	if err := v.structValidator.Struct(s); err != nil {
		if ve := apperrors.ToValidationErrors(err); len(ve) > 0 {
			return ve
		}
		return err
	}
	return nil
}

// ValidateTest checks the cross-field invariants of a test definition:
// every question's answer key must match its type, and every coding
// question needs at least one allowed language.
func (v *Validator) ValidateTest(t *models.Test) apperrors.ValidationErrors {
	var errs apperrors.ValidationErrors

	check := func(q models.Question) {
		switch {
		case q.Type.IsChoice():
			if len(q.Options) < 2 {
				errs = append(errs, *apperrors.NewValidationError("options", "needs at least 2 options", q.Text))
			}
			if q.CorrectOption == nil || *q.CorrectOption < 0 || *q.CorrectOption >= len(q.Options) {
				errs = append(errs, *apperrors.NewValidationError("correct_option", "must index an option", q.Text))
			}
		case q.Type == models.QuestionFillBlank:
			if q.CorrectText == nil && len(q.AcceptableAnswers) == 0 {
				errs = append(errs, *apperrors.NewValidationError("acceptable_answers", "fill-blank needs an answer key", q.Text))
			}
		case q.Type == models.QuestionDescriptive:
			// no key required
		default:
			errs = append(errs, *apperrors.NewValidationError("type", "unknown question type", string(q.Type)))
		}
	}

	for _, sec := range t.Sections {
		for _, q := range sec.Questions {
			check(q)
		}
		for _, cq := range sec.CodingQuestions {
			if len(cq.AllowedLanguages) == 0 {
				errs = append(errs, *apperrors.NewValidationError("allowed_languages", "must not be empty", cq.Title))
			}
		}
	}
	for _, q := range t.Questions {
		check(q)
	}

	return errs
}

// Custom validation functions

func validateQuestionType(fl validator.FieldLevel) bool {
	switch models.QuestionType(fl.Field().String()) {
	case models.QuestionMCQ, models.QuestionTrueFalse, models.QuestionFillBlank,
		models.QuestionImageBased, models.QuestionDescriptive:
		return true
	}
	return false
}

func validateCodingLanguage(fl validator.FieldLevel) bool {
	switch models.CodingLanguage(fl.Field().String()) {
	case models.LangPython, models.LangJavaScript, models.LangJava,
		models.LangC, models.LangCPP, models.LangGo:
		return true
	}
	return false
}

func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("question_type", validateQuestionType)
	validate.RegisterValidation("coding_language", validateCodingLanguage)

	// Report json names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}
