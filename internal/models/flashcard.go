package models

import "time"

// Review ratings accepted by the study scheduler.
const (
	RatingAgain = "again"
	RatingHard  = "hard"
	RatingGood  = "good"
	RatingEasy  = "easy"
)

// MaxLeitnerBox is the highest box a card can reach.
const MaxLeitnerBox = 5

// Deck groups flashcards owned by a single user.
type Deck struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	OwnerID     uint        `gorm:"index;not null" json:"owner_id"`
	ClassID     *uint       `gorm:"index" json:"class_id"`
	Title       string      `gorm:"size:255;not null" json:"title"`
	Description string      `gorm:"type:text" json:"description"`
	Public      bool        `gorm:"not null;default:false" json:"public"`
	Generated   bool        `gorm:"not null;default:false" json:"generated"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	Cards       []Flashcard `gorm:"constraint:OnDelete:CASCADE" json:"cards,omitempty"`
}

// Flashcard is a single front/back card with its Leitner study state.
type Flashcard struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	DeckID     uint       `gorm:"index;not null" json:"deck_id"`
	Front      string     `gorm:"type:text;not null" json:"front"`
	Back       string     `gorm:"type:text;not null" json:"back"`
	Hint       string     `gorm:"type:text" json:"hint"`
	Box        int        `gorm:"not null;default:0" json:"box"`
	DueAt      *time.Time `gorm:"index" json:"due_at"`
	Reviews    int        `gorm:"not null;default:0" json:"reviews"`
	Lapses     int        `gorm:"not null;default:0" json:"lapses"`
	LastRating string     `gorm:"size:16" json:"last_rating"`
	ReviewedAt *time.Time `json:"reviewed_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// IsNew reports whether the card has never been reviewed.
func (c Flashcard) IsNew() bool {
	return c.Reviews == 0
}

// IsDue reports whether the card should be shown at the reference time.
func (c Flashcard) IsDue(reference time.Time) bool {
	return c.DueAt != nil && !c.DueAt.After(reference)
}
