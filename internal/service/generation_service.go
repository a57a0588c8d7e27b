package service

import (
	"context"
	"errors"
	"html"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/dto"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/grading"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/models"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/pkg/ai"
)

const defaultGenerationCount = 10

var (
	// ErrGeneratorUnavailable indicates no AI provider is configured.
	ErrGeneratorUnavailable = errors.New("ai generation is not configured")
	// ErrGenerationEmpty indicates every generated item failed validation.
	ErrGenerationEmpty = errors.New("ai generation produced no usable items")
)

// GenerationService turns study material into decks and draft questions.
type GenerationService interface {
	GenerateDeck(ctx context.Context, actor Actor, payload dto.GenerateFlashcardsRequest) (dto.DeckResponse, error)
	GenerateQuestions(ctx context.Context, actor Actor, payload dto.GenerateQuestionsRequest) (dto.GeneratedQuestionsResponse, error)
}

type generationService struct {
	generator  ai.Generator
	flashcards FlashcardService
	validator  *validator.Validate
	sanitizer  *bluemonday.Policy
	logger     zerolog.Logger
}

// NewGenerationService builds the generation service. A nil generator makes every call fail with ErrGeneratorUnavailable.
func NewGenerationService(generator ai.Generator, flashcards FlashcardService, validate *validator.Validate, logger zerolog.Logger) GenerationService {
	return &generationService{
		generator:  generator,
		flashcards: flashcards,
		validator:  validate,
		sanitizer:  bluemonday.StrictPolicy(),
		logger:     logger.With().Str("component", "generation_service").Logger(),
	}
}

func (s *generationService) GenerateDeck(ctx context.Context, actor Actor, payload dto.GenerateFlashcardsRequest) (dto.DeckResponse, error) {
	if s.generator == nil {
		return dto.DeckResponse{}, ErrGeneratorUnavailable
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.DeckResponse{}, err
	}

	count := payload.Count
	if count <= 0 {
		count = defaultGenerationCount
	}

	drafts, err := s.generator.GenerateFlashcards(ctx, ai.FlashcardRequest{
		Title: payload.Title,
		Text:  payload.Text,
		Count: count,
	})
	if err != nil {
		return dto.DeckResponse{}, err
	}

	cards := make([]dto.CardInput, 0, len(drafts))
	for _, draft := range drafts {
		front := s.plain(draft.Front)
		back := s.plain(draft.Back)
		if front == "" || back == "" {
			continue
		}
		cards = append(cards, dto.CardInput{Front: truncateRunes(front, 2000), Back: truncateRunes(back, 2000), Hint: truncateRunes(s.plain(draft.Hint), 500)})
	}
	if len(cards) == 0 {
		return dto.DeckResponse{}, ErrGenerationEmpty
	}

	deck, err := s.flashcards.CreateDeck(ctx, actor, dto.DeckCreateRequest{
		Title:     payload.Title,
		ClassID:   payload.ClassID,
		Public:    payload.Public,
		Cards:     cards,
		Generated: true,
	})
	if err != nil {
		return dto.DeckResponse{}, err
	}

	s.logger.Info().Uint("deck_id", deck.ID).Uint("owner_id", actor.ID).Int("drafts", len(drafts)).Int("kept", len(cards)).Msg("deck generated")
	return deck, nil
}

func (s *generationService) GenerateQuestions(ctx context.Context, actor Actor, payload dto.GenerateQuestionsRequest) (dto.GeneratedQuestionsResponse, error) {
	if !actor.IsStaff() {
		return dto.GeneratedQuestionsResponse{}, ErrForbidden
	}
	if s.generator == nil {
		return dto.GeneratedQuestionsResponse{}, ErrGeneratorUnavailable
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.GeneratedQuestionsResponse{}, err
	}

	count := payload.Count
	if count <= 0 {
		count = defaultGenerationCount
	}

	drafts, err := s.generator.GenerateQuestions(ctx, ai.QuestionRequest{
		Text:  payload.Text,
		Count: count,
		Types: payload.Types,
	})
	if err != nil {
		return dto.GeneratedQuestionsResponse{}, err
	}

	allowed := make(map[string]struct{}, len(payload.Types))
	for _, kind := range payload.Types {
		allowed[kind] = struct{}{}
	}

	response := dto.GeneratedQuestionsResponse{Questions: make([]models.Question, 0, len(drafts))}
	for _, draft := range drafts {
		if _, ok := allowed[draft.Type]; len(allowed) > 0 && !ok {
			response.Discarded++
			continue
		}
		question := models.Question{
			ID:             uuid.NewString(),
			Type:           draft.Type,
			Prompt:         s.plain(draft.Prompt),
			Options:        s.plainList(draft.Options),
			CorrectAnswers: s.plainList(draft.CorrectAnswers),
			Points:         draft.Points,
		}
		if question.Points <= 0 {
			question.Points = 1
		}
		if err := grading.ValidateQuestion(question); err != nil {
			s.logger.Debug().Err(err).Str("type", draft.Type).Msg("discarding generated question")
			response.Discarded++
			continue
		}
		response.Questions = append(response.Questions, question)
	}

	if len(response.Questions) == 0 {
		return dto.GeneratedQuestionsResponse{}, ErrGenerationEmpty
	}

	s.logger.Info().Uint("actor_id", actor.ID).Int("kept", len(response.Questions)).Int("discarded", response.Discarded).Msg("questions generated")
	return response, nil
}

func (s *generationService) plain(value string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(value)))
}

func (s *generationService) plainList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	cleaned := make([]string, 0, len(values))
	for _, value := range values {
		if plain := s.plain(value); plain != "" {
			cleaned = append(cleaned, plain)
		}
	}
	return cleaned
}

func truncateRunes(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
