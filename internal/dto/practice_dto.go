package dto

import (
	"time"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/models"
)

// PracticeTestCreateRequest sizes a generated practice test.
type PracticeTestCreateRequest struct {
	Count int `json:"count" validate:"omitempty,min=1,max=50"`
}

// PracticeTestSubmitRequest carries the answers for every question.
type PracticeTestSubmitRequest struct {
	Answers map[string][]string `json:"answers" validate:"required,max=50,dive,max=20,dive,max=2000"`
}

// PracticeTestResponse is the serialized practice test.
type PracticeTestResponse struct {
	ID          uint                     `json:"id"`
	DeckID      uint                     `json:"deck_id"`
	Questions   []models.Question        `json:"questions"`
	Answers     models.Answers           `json:"answers,omitempty"`
	Outcomes    []models.QuestionOutcome `json:"outcomes,omitempty"`
	Score       float64                  `json:"score"`
	MaxScore    float64                  `json:"max_score"`
	Percentage  float64                  `json:"percentage"`
	CompletedAt *time.Time               `json:"completed_at"`
	CreatedAt   time.Time                `json:"created_at"`
}

// NewPracticeTestResponse converts a model using the provided question view.
func NewPracticeTestResponse(model models.PracticeTest, questions []models.Question) PracticeTestResponse {
	response := PracticeTestResponse{
		ID:          model.ID,
		DeckID:      model.DeckID,
		Questions:   questions,
		Score:       model.Score,
		MaxScore:    model.MaxScore,
		CompletedAt: model.CompletedAt,
		CreatedAt:   model.CreatedAt,
	}
	if model.IsCompleted() {
		response.Answers = model.Answers.Data()
		response.Outcomes = model.Outcomes
		if model.MaxScore > 0 {
			response.Percentage = model.Score / model.MaxScore * 100
		}
	}
	return response
}
