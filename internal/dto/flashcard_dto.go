package dto

import (
	"time"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/models"
)

// Study modes.
const (
	StudyModeLearn  = "learn"
	StudyModeReview = "review"
	StudyModeCram   = "cram"
)

// CardInput is a flashcard as typed by its owner.
type CardInput struct {
	Front string `json:"front" validate:"required,max=2000"`
	Back  string `json:"back" validate:"required,max=2000"`
	Hint  string `json:"hint" validate:"omitempty,max=500"`
}

// CardUpdateRequest patches a card's text.
type CardUpdateRequest struct {
	Front *string `json:"front" validate:"omitempty,min=1,max=2000"`
	Back  *string `json:"back" validate:"omitempty,min=1,max=2000"`
	Hint  *string `json:"hint" validate:"omitempty,max=500"`
}

// DeckCreateRequest describes a new deck with optional initial cards.
type DeckCreateRequest struct {
	Title       string      `json:"title" validate:"required,min=1,max=255"`
	Description string      `json:"description" validate:"omitempty,max=2000"`
	ClassID     *uint       `json:"class_id"`
	Public      bool        `json:"public"`
	Cards       []CardInput `json:"cards" validate:"omitempty,max=500,dive"`
	Generated   bool        `json:"-"`
}

// DeckUpdateRequest patches deck metadata.
type DeckUpdateRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	ClassID     *uint   `json:"class_id"`
	Public      *bool   `json:"public"`
}

// AddCardsRequest appends cards to a deck.
type AddCardsRequest struct {
	Cards []CardInput `json:"cards" validate:"required,min=1,max=500,dive"`
}

// ReviewRequest grades recall of one card.
type ReviewRequest struct {
	Rating string `json:"rating" validate:"required,oneof=again hard good easy"`
}

// StudyQuery selects cards for a study session.
type StudyQuery struct {
	Mode  string `query:"mode" validate:"omitempty,oneof=learn review cram"`
	Limit int    `query:"limit" validate:"omitempty,min=1,max=200"`
}

// CardResponse is the serialized flashcard with its study state.
type CardResponse struct {
	ID         uint       `json:"id"`
	DeckID     uint       `json:"deck_id"`
	Front      string     `json:"front"`
	Back       string     `json:"back"`
	Hint       string     `json:"hint,omitempty"`
	Box        int        `json:"box"`
	DueAt      *time.Time `json:"due_at"`
	Reviews    int        `json:"reviews"`
	Lapses     int        `json:"lapses"`
	LastRating string     `json:"last_rating,omitempty"`
}

// NewCardResponse converts a model into a DTO.
func NewCardResponse(model models.Flashcard) CardResponse {
	return CardResponse{
		ID:         model.ID,
		DeckID:     model.DeckID,
		Front:      model.Front,
		Back:       model.Back,
		Hint:       model.Hint,
		Box:        model.Box,
		DueAt:      model.DueAt,
		Reviews:    model.Reviews,
		Lapses:     model.Lapses,
		LastRating: model.LastRating,
	}
}

// NewCardResponseSlice converts a slice of models into DTOs.
func NewCardResponseSlice(cards []models.Flashcard) []CardResponse {
	responses := make([]CardResponse, 0, len(cards))
	for _, card := range cards {
		responses = append(responses, NewCardResponse(card))
	}
	return responses
}

// DeckResponse is the serialized deck.
type DeckResponse struct {
	ID          uint           `json:"id"`
	OwnerID     uint           `json:"owner_id"`
	ClassID     *uint          `json:"class_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Public      bool           `json:"public"`
	Generated   bool           `json:"generated"`
	CardCount   int            `json:"card_count"`
	Cards       []CardResponse `json:"cards,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NewDeckResponse converts a model into a DTO; cards are included when loaded.
func NewDeckResponse(model models.Deck) DeckResponse {
	response := DeckResponse{
		ID:          model.ID,
		OwnerID:     model.OwnerID,
		ClassID:     model.ClassID,
		Title:       model.Title,
		Description: model.Description,
		Public:      model.Public,
		Generated:   model.Generated,
		CardCount:   len(model.Cards),
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
	if len(model.Cards) > 0 {
		response.Cards = NewCardResponseSlice(model.Cards)
	}
	return response
}

// StudySessionResponse is the ordered card list for a study mode.
type StudySessionResponse struct {
	DeckID   uint           `json:"deck_id"`
	Mode     string         `json:"mode"`
	DueCount int            `json:"due_count"`
	NewCount int            `json:"new_count"`
	Cards    []CardResponse `json:"cards"`
}
