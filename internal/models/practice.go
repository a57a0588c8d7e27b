package models

import (
	"time"

	"gorm.io/datatypes"
)

// PracticeTest is a self-check quiz generated from a flashcard deck.
type PracticeTest struct {
	ID          uint                                 `gorm:"primaryKey" json:"id"`
	DeckID      uint                                 `gorm:"index;not null" json:"deck_id"`
	UserID      uint                                 `gorm:"index;not null" json:"user_id"`
	Questions   datatypes.JSONSlice[Question]        `json:"questions"`
	Answers     datatypes.JSONType[Answers]          `json:"answers"`
	Outcomes    datatypes.JSONSlice[QuestionOutcome] `json:"outcomes"`
	Score       float64                              `gorm:"not null;default:0" json:"score"`
	MaxScore    float64                              `gorm:"not null;default:0" json:"max_score"`
	CompletedAt *time.Time                           `json:"completed_at"`
	CreatedAt   time.Time                            `json:"created_at"`
	UpdatedAt   time.Time                            `json:"updated_at"`
}

// IsCompleted reports whether answers were already submitted.
func (p PracticeTest) IsCompleted() bool {
	return p.CompletedAt != nil
}
