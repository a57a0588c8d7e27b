// Package grading scores stored answers against an assessment's answer key.
package grading

import (
	"strings"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/models"
)

// Result is the outcome of grading a full set of answers.
type Result struct {
	Earned      float64
	Max         float64
	Outcomes    []models.QuestionOutcome
	NeedsManual bool
}

// Grade scores answers against every question. Short and paragraph questions
// are left pending for a teacher and contribute nothing until ApplyManual.
func Grade(questions []models.Question, answers models.Answers) Result {
	result := Result{Outcomes: make([]models.QuestionOutcome, 0, len(questions))}

	for _, question := range questions {
		result.Max += question.Points
		outcome := models.QuestionOutcome{
			QuestionID: question.ID,
			Points:     question.Points,
		}

		given := answers[question.ID]

		if question.RequiresManualGrading() {
			outcome.Manual = true
			if hasContent(given) {
				outcome.Pending = true
				result.NeedsManual = true
			}
			result.Outcomes = append(result.Outcomes, outcome)
			continue
		}

		if IsCorrect(question, given) {
			outcome.Correct = true
			outcome.Earned = question.Points
			result.Earned += question.Points
		}

		result.Outcomes = append(result.Outcomes, outcome)
	}

	return result
}

// ApplyManual adds teacher-awarded points for manually graded questions.
// Awards for unknown or auto-graded questions are ignored and every award is
// clamped to the question's point value.
func ApplyManual(result Result, questions []models.Question, awards map[string]float64) Result {
	byID := make(map[string]models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	updated := Result{
		Max:      result.Max,
		Outcomes: make([]models.QuestionOutcome, len(result.Outcomes)),
	}
	copy(updated.Outcomes, result.Outcomes)

	for i, outcome := range updated.Outcomes {
		question, ok := byID[outcome.QuestionID]
		if !ok || !question.RequiresManualGrading() {
			updated.Earned += outcome.Earned
			continue
		}

		award, awarded := awards[outcome.QuestionID]
		if !awarded {
			if outcome.Pending {
				updated.NeedsManual = true
			}
			updated.Earned += outcome.Earned
			continue
		}

		award = clamp(award, 0, question.Points)
		outcome.Earned = award
		outcome.Correct = award >= question.Points && question.Points > 0
		outcome.Pending = false
		updated.Outcomes[i] = outcome
		updated.Earned += award
	}

	return updated
}

// IsCorrect reports whether the given answer satisfies an auto-graded question.
func IsCorrect(question models.Question, given []string) bool {
	if !hasContent(given) || len(question.CorrectAnswers) == 0 {
		return false
	}

	switch question.Type {
	case models.QuestionMCQ, models.QuestionTrueFalse:
		return normalise(given[0], false) == normalise(question.CorrectAnswers[0], false)
	case models.QuestionCheckboxes:
		return sameSet(given, question.CorrectAnswers)
	case models.QuestionIdentification:
		answer := normalise(given[0], question.CaseSensitive)
		for _, accepted := range question.CorrectAnswers {
			if answer == normalise(accepted, question.CaseSensitive) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func sameSet(given, expected []string) bool {
	want := make(map[string]struct{}, len(expected))
	for _, value := range expected {
		want[normalise(value, false)] = struct{}{}
	}

	got := make(map[string]struct{}, len(given))
	for _, value := range given {
		key := normalise(value, false)
		if key == "" {
			continue
		}
		if _, ok := want[key]; !ok {
			return false
		}
		got[key] = struct{}{}
	}

	return len(got) == len(want)
}

func normalise(value string, caseSensitive bool) string {
	value = strings.Join(strings.Fields(value), " ")
	if caseSensitive {
		return value
	}
	return strings.ToLower(value)
}

func hasContent(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

func clamp(value, lower, upper float64) float64 {
	if value < lower {
		return lower
	}
	if value > upper {
		return upper
	}
	return value
}
