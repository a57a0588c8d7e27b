package ai

import (
	"context"
	"errors"
)

// ErrInvalidOutput indicates the model returned JSON that failed schema validation.
var ErrInvalidOutput = errors.New("ai output failed validation")

// FlashcardDraft is a generated front/back pair.
type FlashcardDraft struct {
	Front string `json:"front"`
	Back  string `json:"back"`
	Hint  string `json:"hint,omitempty"`
}

// QuestionDraft is a generated assessment question.
type QuestionDraft struct {
	Type           string   `json:"type"`
	Prompt         string   `json:"prompt"`
	Options        []string `json:"options,omitempty"`
	CorrectAnswers []string `json:"correct_answers,omitempty"`
	Points         float64  `json:"points,omitempty"`
}

// FlashcardRequest describes source material for flashcard generation.
type FlashcardRequest struct {
	Title string
	Text  string
	Count int
}

// QuestionRequest describes source material for question generation.
type QuestionRequest struct {
	Text  string
	Count int
	Types []string
}

// Generator produces study material from free text.
type Generator interface {
	GenerateFlashcards(ctx context.Context, req FlashcardRequest) ([]FlashcardDraft, error)
	GenerateQuestions(ctx context.Context, req QuestionRequest) ([]QuestionDraft, error)
}
