// Package scoring compares submitted answers against an immutable test
// definition. It is pure: no storage, no clock, no I/O. The result service
// runs the objective pass at submission time and the aggregate recompute
// whenever a manual grade lands.
package scoring

import (
	"strings"

	"github.com/testforge/exam-service/internal/models"
)

// DefaultCodingMax is the maximum awardable for a coding question that has
// no test cases to derive a weight sum from.
const DefaultCodingMax = 10.0

// SubmittedAnswer is one answer coordinate as sent by the client. Exactly
// one of SelectedOption / TextAnswer is expected to be set, matching the
// question type at that coordinate.
type SubmittedAnswer struct {
	SectionIndex   int     `json:"section_index"`
	QuestionIndex  int     `json:"question_index"`
	SelectedOption *int    `json:"selected_option,omitempty"`
	TextAnswer     *string `json:"text_answer,omitempty"`
}

// SubmittedCode is a coding answer as sent by the client. An empty Language
// falls back to the question's default language.
type SubmittedCode struct {
	SectionIndex        int                   `json:"section_index"`
	CodingQuestionIndex int                   `json:"coding_question_index"`
	SourceCode          string                `json:"source_code"`
	Language            models.CodingLanguage `json:"language" validate:"omitempty,coding_language"`
}

// Graded is the output of the objective pass. Score counts only objective
// points; descriptive and coding entries carry a nil Score until an admin
// grades them and contribute their max to TotalMarks immediately.
type Graded struct {
	Answers     []models.ResultAnswer
	Descriptive []models.DescriptiveResultAnswer
	Coding      []models.CodingResultAnswer
	Score       float64
	TotalMarks  float64
}

// Normalize flattens the two historical test shapes into one: a test with a
// legacy flat question list becomes a single implicit section. Everything
// downstream sees only sections.
func Normalize(t *models.Test) []models.Section {
	if len(t.Sections) > 0 {
		return t.Sections
	}
	if len(t.Questions) == 0 {
		return nil
	}
	return []models.Section{{Title: t.Title, Questions: t.Questions}}
}

// CodingMax is the maximum awardable for a coding question: the sum of its
// test case weights, or DefaultCodingMax when it has none.
func CodingMax(q models.CodingQuestion) float64 {
	if len(q.TestCases) == 0 {
		return DefaultCodingMax
	}
	var sum float64
	for _, tc := range q.TestCases {
		sum += tc.WeightOrDefault()
	}
	return sum
}

// TotalMarks sums every question's points and every coding question's max
// across all sections. Computed once at submission and frozen on the Result.
func TotalMarks(sections []models.Section) float64 {
	var total float64
	for _, sec := range sections {
		for _, q := range sec.Questions {
			total += q.PointsOrDefault()
		}
		for _, cq := range sec.CodingQuestions {
			total += CodingMax(cq)
		}
	}
	return total
}

type coord struct{ section, question int }

// Grade runs the objective pass: every question in the test is visited, a
// missing answer scores 0, and when the client sent several answers for the
// same coordinate the last one wins.
func Grade(t *models.Test, answers []SubmittedAnswer, code []SubmittedCode) Graded {
	sections := Normalize(t)

	byCoord := make(map[coord]SubmittedAnswer, len(answers))
	for _, a := range answers {
		byCoord[coord{a.SectionIndex, a.QuestionIndex}] = a
	}
	codeByCoord := make(map[coord]SubmittedCode, len(code))
	for _, c := range code {
		codeByCoord[coord{c.SectionIndex, c.CodingQuestionIndex}] = c
	}

	out := Graded{TotalMarks: TotalMarks(sections)}

	for si, sec := range sections {
		for qi, q := range sec.Questions {
			sub, answered := byCoord[coord{si, qi}]

			if q.Type == models.QuestionDescriptive {
				entry := models.DescriptiveResultAnswer{
					SectionIndex:  si,
					QuestionIndex: qi,
					MaxPoints:     q.PointsOrDefault(),
				}
				if answered && sub.TextAnswer != nil {
					entry.TextAnswer = *sub.TextAnswer
				}
				out.Descriptive = append(out.Descriptive, entry)
				continue
			}

			awarded, correct := scoreObjective(q, sub, answered)
			out.Score += awarded
			out.Answers = append(out.Answers, models.ResultAnswer{
				SectionIndex:   si,
				QuestionIndex:  qi,
				SelectedOption: sub.SelectedOption,
				TextAnswer:     sub.TextAnswer,
				IsCorrect:      correct,
				PointsAwarded:  awarded,
			})
		}

		for ci, cq := range sec.CodingQuestions {
			entry := models.CodingResultAnswer{
				SectionIndex:        si,
				CodingQuestionIndex: ci,
				Language:            cq.Language,
				MaxPoints:           CodingMax(cq),
			}
			if sub, ok := codeByCoord[coord{si, ci}]; ok {
				entry.SourceCode = sub.SourceCode
				if sub.Language != "" {
					entry.Language = sub.Language
				}
			}
			out.Coding = append(out.Coding, entry)
		}
	}

	return out
}

// scoreObjective awards full points or zero for a single objective question.
// correct is nil when the question was left unanswered.
func scoreObjective(q models.Question, sub SubmittedAnswer, answered bool) (float64, *bool) {
	if !answered {
		return 0, nil
	}

	var correct bool
	switch {
	case q.Type.IsChoice():
		correct = sub.SelectedOption != nil &&
			q.CorrectOption != nil &&
			*sub.SelectedOption == *q.CorrectOption
	case q.Type == models.QuestionFillBlank:
		correct = sub.TextAnswer != nil && matchFillBlank(q, *sub.TextAnswer)
	default:
		return 0, nil
	}

	if correct {
		return q.PointsOrDefault(), &correct
	}
	return 0, &correct
}

// matchFillBlank compares a submitted string against the acceptable answer
// set (plus CorrectText, which older definitions use alone). Matching is
// case-insensitive unless the question opts into case sensitivity; leading
// and trailing whitespace never counts.
func matchFillBlank(q models.Question, submitted string) bool {
	keys := q.AcceptableAnswers
	if q.CorrectText != nil {
		keys = append([]string{*q.CorrectText}, keys...)
	}

	submitted = strings.TrimSpace(submitted)
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if q.CaseSensitive {
			if submitted == key {
				return true
			}
		} else if strings.EqualFold(submitted, key) {
			return true
		}
	}
	return false
}

// Aggregate recomputes a result's score: objective points plus every manual
// grade recorded so far. Ungraded descriptive and coding entries contribute
// zero, so the aggregate can only grow as grading proceeds and never exceeds
// TotalMarks once every entry is graded within bounds.
func Aggregate(r *models.Result) float64 {
	var total float64
	for _, a := range r.Answers {
		total += a.PointsAwarded
	}
	for _, d := range r.DescriptiveAnswers {
		if d.Score != nil {
			total += *d.Score
		}
	}
	for _, c := range r.CodingAnswers {
		if c.Score != nil {
			total += *c.Score
		}
	}
	return total
}

// FullyGraded reports whether every manually-graded entry has a score.
func FullyGraded(r *models.Result) bool {
	for _, d := range r.DescriptiveAnswers {
		if d.Score == nil {
			return false
		}
	}
	for _, c := range r.CodingAnswers {
		if c.Score == nil {
			return false
		}
	}
	return true
}
