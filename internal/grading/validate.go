package grading

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/models"
)

// ErrInvalidQuestion wraps every answer-key validation failure.
var ErrInvalidQuestion = errors.New("invalid question")

// ValidateQuestion checks that a question's answer key is consistent with its type.
func ValidateQuestion(q models.Question) error {
	if strings.TrimSpace(q.Prompt) == "" {
		return invalid(q, "prompt is required")
	}
	if q.Points <= 0 {
		return invalid(q, "points must be positive")
	}

	switch q.Type {
	case models.QuestionMCQ, models.QuestionTrueFalse:
		if len(q.Options) < 2 {
			return invalid(q, "at least two options are required")
		}
		if len(q.CorrectAnswers) != 1 {
			return invalid(q, "exactly one correct answer is required")
		}
		if !containsOption(q.Options, q.CorrectAnswers[0]) {
			return invalid(q, "correct answer must be one of the options")
		}
	case models.QuestionCheckboxes:
		if len(q.Options) < 2 {
			return invalid(q, "at least two options are required")
		}
		if len(q.CorrectAnswers) == 0 {
			return invalid(q, "at least one correct answer is required")
		}
		for _, answer := range q.CorrectAnswers {
			if !containsOption(q.Options, answer) {
				return invalid(q, "correct answers must be options")
			}
		}
	case models.QuestionIdentification:
		if !hasContent(q.CorrectAnswers) {
			return invalid(q, "at least one accepted answer is required")
		}
	case models.QuestionShort, models.QuestionParagraph:
	default:
		return invalid(q, fmt.Sprintf("unsupported type %q", q.Type))
	}

	return nil
}

// StripAnswers removes the answer key so questions can be shown to students.
func StripAnswers(questions []models.Question) []models.Question {
	stripped := make([]models.Question, len(questions))
	for i, q := range questions {
		q.CorrectAnswers = nil
		stripped[i] = q
	}
	return stripped
}

func containsOption(options []string, value string) bool {
	target := normalise(value, false)
	for _, option := range options {
		if normalise(option, false) == target {
			return true
		}
	}
	return false
}

func invalid(q models.Question, reason string) error {
	if q.ID == "" {
		return fmt.Errorf("%w: %s", ErrInvalidQuestion, reason)
	}
	return fmt.Errorf("%w %s: %s", ErrInvalidQuestion, q.ID, reason)
}
