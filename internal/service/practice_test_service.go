package service

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/dto"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/grading"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/models"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/repository"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/study"
)

var (
	// ErrPracticeTestNotFound indicates the practice test does not exist for the actor.
	ErrPracticeTestNotFound = errors.New("practice test not found")
	// ErrPracticeTestCompleted indicates answers were already submitted.
	ErrPracticeTestCompleted = errors.New("practice test already completed")
	// ErrDeckEmpty indicates a practice test was requested for a deck without cards.
	ErrDeckEmpty = errors.New("deck has no cards")
)

// PracticeTestService generates and scores self-check quizzes from decks.
type PracticeTestService interface {
	Generate(ctx context.Context, actor Actor, deckID uint, payload dto.PracticeTestCreateRequest) (dto.PracticeTestResponse, error)
	Submit(ctx context.Context, actor Actor, id uint, payload dto.PracticeTestSubmitRequest) (dto.PracticeTestResponse, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.PracticeTestResponse, error)
	List(ctx context.Context, actor Actor, deckID *uint) ([]dto.PracticeTestResponse, error)
}

type practiceTestService struct {
	tests     repository.PracticeTestRepository
	decks     FlashcardService
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewPracticeTestService builds the practice test service on top of deck visibility rules.
func NewPracticeTestService(tests repository.PracticeTestRepository, decks FlashcardService, validate *validator.Validate, logger zerolog.Logger) PracticeTestService {
	return &practiceTestService{
		tests:     tests,
		decks:     decks,
		validator: validate,
		logger:    logger.With().Str("component", "practice_test_service").Logger(),
		now:       time.Now,
	}
}

func (s *practiceTestService) Generate(ctx context.Context, actor Actor, deckID uint, payload dto.PracticeTestCreateRequest) (dto.PracticeTestResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.PracticeTestResponse{}, err
	}

	deck, err := s.decks.GetDeck(ctx, actor, deckID)
	if err != nil {
		return dto.PracticeTestResponse{}, err
	}
	if len(deck.Cards) == 0 {
		return dto.PracticeTestResponse{}, ErrDeckEmpty
	}

	cards := make([]models.Flashcard, 0, len(deck.Cards))
	for _, card := range deck.Cards {
		cards = append(cards, models.Flashcard{ID: card.ID, DeckID: card.DeckID, Front: card.Front, Back: card.Back, Hint: card.Hint})
	}

	rng := rand.New(rand.NewSource(s.now().UnixNano()))
	questions := study.BuildPracticeQuestions(cards, payload.Count, rng)

	test := models.PracticeTest{
		DeckID:    deck.ID,
		UserID:    actor.ID,
		Questions: datatypes.NewJSONSlice(questions),
		Answers:   datatypes.NewJSONType(models.Answers{}),
	}
	for _, question := range questions {
		test.MaxScore += question.Points
	}
	if err := s.tests.Create(ctx, &test); err != nil {
		return dto.PracticeTestResponse{}, err
	}

	s.logger.Info().Uint("practice_test_id", test.ID).Uint("deck_id", deck.ID).Int("questions", len(questions)).Msg("practice test generated")
	return s.respond(test), nil
}

func (s *practiceTestService) Submit(ctx context.Context, actor Actor, id uint, payload dto.PracticeTestSubmitRequest) (dto.PracticeTestResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.PracticeTestResponse{}, err
	}

	test, err := s.load(ctx, actor, id)
	if err != nil {
		return dto.PracticeTestResponse{}, err
	}
	if test.IsCompleted() {
		return dto.PracticeTestResponse{}, ErrPracticeTestCompleted
	}

	answers := models.Answers{}
	for _, question := range test.Questions {
		if given, ok := payload.Answers[question.ID]; ok {
			answers[question.ID] = given
		}
	}

	result := grading.Grade(test.Questions, answers)
	now := s.now()
	test.Answers = datatypes.NewJSONType(answers)
	test.Outcomes = datatypes.NewJSONSlice(result.Outcomes)
	test.Score = result.Earned
	test.MaxScore = result.Max
	test.CompletedAt = &now

	if err := s.tests.Update(ctx, &test); err != nil {
		return dto.PracticeTestResponse{}, err
	}
	return s.respond(test), nil
}

func (s *practiceTestService) Get(ctx context.Context, actor Actor, id uint) (dto.PracticeTestResponse, error) {
	test, err := s.load(ctx, actor, id)
	if err != nil {
		return dto.PracticeTestResponse{}, err
	}
	return s.respond(test), nil
}

func (s *practiceTestService) List(ctx context.Context, actor Actor, deckID *uint) ([]dto.PracticeTestResponse, error) {
	tests, err := s.tests.ListByUser(ctx, actor.ID, deckID)
	if err != nil {
		return nil, err
	}
	responses := make([]dto.PracticeTestResponse, 0, len(tests))
	for _, test := range tests {
		responses = append(responses, s.respond(test))
	}
	return responses, nil
}

func (s *practiceTestService) load(ctx context.Context, actor Actor, id uint) (models.PracticeTest, error) {
	test, err := s.tests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.PracticeTest{}, ErrPracticeTestNotFound
		}
		return models.PracticeTest{}, err
	}
	if test.UserID != actor.ID {
		return models.PracticeTest{}, ErrPracticeTestNotFound
	}
	return test, nil
}

// respond reveals the answer key only after the test is completed.
func (s *practiceTestService) respond(test models.PracticeTest) dto.PracticeTestResponse {
	questions := []models.Question(test.Questions)
	if !test.IsCompleted() {
		questions = grading.StripAnswers(questions)
	}
	return dto.NewPracticeTestResponse(test, questions)
}
