package dto

import "github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/models"

// GenerateFlashcardsRequest turns study material into a new deck.
type GenerateFlashcardsRequest struct {
	Title   string `json:"title" validate:"required,min=1,max=255"`
	Text    string `json:"text" validate:"required,min=20,max=20000"`
	Count   int    `json:"count" validate:"omitempty,min=1,max=50"`
	ClassID *uint  `json:"class_id"`
	Public  bool   `json:"public"`
}

// GenerateQuestionsRequest drafts questions for a teacher to review.
type GenerateQuestionsRequest struct {
	Text  string   `json:"text" validate:"required,min=20,max=20000"`
	Count int      `json:"count" validate:"omitempty,min=1,max=50"`
	Types []string `json:"types" validate:"omitempty,max=6,dive,oneof=mcq checkboxes true_false identification short paragraph"`
}

// GeneratedQuestionsResponse holds validated drafts ready to add to an assessment.
type GeneratedQuestionsResponse struct {
	Questions []models.Question `json:"questions"`
	Discarded int               `json:"discarded"`
}
