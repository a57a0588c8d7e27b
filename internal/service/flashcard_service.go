package service

import (
	"context"
	"errors"
	"html"
	"math/rand"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/dto"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/models"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/repository"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/study"
)

var (
	// ErrDeckNotFound indicates the deck does not exist or is not visible to the actor.
	ErrDeckNotFound = errors.New("deck not found")
	// ErrCardNotFound indicates the card does not belong to the deck.
	ErrCardNotFound = errors.New("flashcard not found")
	// ErrNotDeckOwner indicates only the owner may change or study the deck.
	ErrNotDeckOwner = errors.New("only the deck owner can do this")
)

// FlashcardService manages decks, cards and spaced-repetition study.
type FlashcardService interface {
	CreateDeck(ctx context.Context, actor Actor, payload dto.DeckCreateRequest) (dto.DeckResponse, error)
	UpdateDeck(ctx context.Context, actor Actor, id uint, payload dto.DeckUpdateRequest) (dto.DeckResponse, error)
	DeleteDeck(ctx context.Context, actor Actor, id uint) error
	GetDeck(ctx context.Context, actor Actor, id uint) (dto.DeckResponse, error)
	ListDecks(ctx context.Context, actor Actor) ([]dto.DeckResponse, error)
	CopyDeck(ctx context.Context, actor Actor, id uint) (dto.DeckResponse, error)
	AddCards(ctx context.Context, actor Actor, deckID uint, payload dto.AddCardsRequest) ([]dto.CardResponse, error)
	UpdateCard(ctx context.Context, actor Actor, deckID, cardID uint, payload dto.CardUpdateRequest) (dto.CardResponse, error)
	DeleteCard(ctx context.Context, actor Actor, deckID, cardID uint) error
	Study(ctx context.Context, actor Actor, deckID uint, query dto.StudyQuery) (dto.StudySessionResponse, error)
	Review(ctx context.Context, actor Actor, deckID, cardID uint, payload dto.ReviewRequest) (dto.CardResponse, error)
}

type flashcardService struct {
	decks      repository.DeckRepository
	access     classAccess
	validator  *validator.Validate
	sanitizer  *bluemonday.Policy
	dashboards DashboardInvalidator
	logger     zerolog.Logger
	now        func() time.Time
}

// NewFlashcardService builds the flashcard service. dashboards may be nil.
func NewFlashcardService(decks repository.DeckRepository, classes repository.ClassRepository, users repository.UserRepository, validate *validator.Validate, dashboards DashboardInvalidator, logger zerolog.Logger) FlashcardService {
	if dashboards == nil {
		dashboards = noopInvalidator{}
	}
	return &flashcardService{
		decks:      decks,
		access:     classAccess{classes: classes, users: users},
		validator:  validate,
		sanitizer:  bluemonday.StrictPolicy(),
		dashboards: dashboards,
		logger:     logger.With().Str("component", "flashcard_service").Logger(),
		now:        time.Now,
	}
}

func (s *flashcardService) CreateDeck(ctx context.Context, actor Actor, payload dto.DeckCreateRequest) (dto.DeckResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.DeckResponse{}, err
	}
	if err := s.checkClass(ctx, actor, payload.ClassID); err != nil {
		return dto.DeckResponse{}, err
	}

	deck := models.Deck{
		OwnerID:     actor.ID,
		ClassID:     payload.ClassID,
		Title:       s.plain(payload.Title),
		Description: s.plain(payload.Description),
		Public:      payload.Public,
		Generated:   payload.Generated,
	}
	if err := s.decks.CreateDeck(ctx, &deck); err != nil {
		return dto.DeckResponse{}, err
	}

	cards := s.buildCards(deck.ID, payload.Cards)
	if err := s.decks.CreateCards(ctx, cards); err != nil {
		return dto.DeckResponse{}, err
	}
	deck.Cards = cards

	s.dashboards.Invalidate(ctx, actor.ID)
	s.logger.Info().Uint("deck_id", deck.ID).Uint("owner_id", actor.ID).Int("cards", len(cards)).Msg("deck created")
	return dto.NewDeckResponse(deck), nil
}

func (s *flashcardService) UpdateDeck(ctx context.Context, actor Actor, id uint, payload dto.DeckUpdateRequest) (dto.DeckResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.DeckResponse{}, err
	}

	deck, err := s.ownedDeck(ctx, actor, id, false)
	if err != nil {
		return dto.DeckResponse{}, err
	}

	if payload.Title != nil {
		deck.Title = s.plain(*payload.Title)
	}
	if payload.Description != nil {
		deck.Description = s.plain(*payload.Description)
	}
	if payload.ClassID != nil {
		if *payload.ClassID == 0 {
			deck.ClassID = nil
		} else {
			if err := s.checkClass(ctx, actor, payload.ClassID); err != nil {
				return dto.DeckResponse{}, err
			}
			deck.ClassID = payload.ClassID
		}
	}
	if payload.Public != nil {
		deck.Public = *payload.Public
	}

	if err := s.decks.UpdateDeck(ctx, &deck); err != nil {
		return dto.DeckResponse{}, err
	}
	return dto.NewDeckResponse(deck), nil
}

func (s *flashcardService) DeleteDeck(ctx context.Context, actor Actor, id uint) error {
	deck, err := s.loadDeck(ctx, id, false)
	if err != nil {
		return err
	}
	if deck.OwnerID != actor.ID && !actor.IsCoordinator() {
		return ErrNotDeckOwner
	}
	if err := s.decks.DeleteDeck(ctx, id); err != nil {
		return err
	}
	s.dashboards.Invalidate(ctx, deck.OwnerID)
	return nil
}

func (s *flashcardService) GetDeck(ctx context.Context, actor Actor, id uint) (dto.DeckResponse, error) {
	deck, err := s.readableDeck(ctx, actor, id)
	if err != nil {
		return dto.DeckResponse{}, err
	}
	return dto.NewDeckResponse(deck), nil
}

func (s *flashcardService) ListDecks(ctx context.Context, actor Actor) ([]dto.DeckResponse, error) {
	classes, err := s.access.visibleClasses(ctx, actor)
	if err != nil {
		return nil, err
	}
	decks, err := s.decks.ListDecks(ctx, actor.ID, classIDs(classes))
	if err != nil {
		return nil, err
	}

	responses := make([]dto.DeckResponse, 0, len(decks))
	for _, deck := range decks {
		cards, err := s.decks.ListCards(ctx, deck.ID)
		if err != nil {
			return nil, err
		}
		response := dto.NewDeckResponse(deck)
		response.CardCount = len(cards)
		responses = append(responses, response)
	}
	return responses, nil
}

func (s *flashcardService) CopyDeck(ctx context.Context, actor Actor, id uint) (dto.DeckResponse, error) {
	source, err := s.readableDeck(ctx, actor, id)
	if err != nil {
		return dto.DeckResponse{}, err
	}

	deck := models.Deck{
		OwnerID:     actor.ID,
		Title:       source.Title,
		Description: source.Description,
	}
	if err := s.decks.CreateDeck(ctx, &deck); err != nil {
		return dto.DeckResponse{}, err
	}

	cards := make([]models.Flashcard, 0, len(source.Cards))
	for _, card := range source.Cards {
		cards = append(cards, models.Flashcard{DeckID: deck.ID, Front: card.Front, Back: card.Back, Hint: card.Hint})
	}
	if err := s.decks.CreateCards(ctx, cards); err != nil {
		return dto.DeckResponse{}, err
	}
	deck.Cards = cards

	s.dashboards.Invalidate(ctx, actor.ID)
	s.logger.Info().Uint("source_deck_id", source.ID).Uint("deck_id", deck.ID).Uint("owner_id", actor.ID).Msg("deck copied")
	return dto.NewDeckResponse(deck), nil
}

func (s *flashcardService) AddCards(ctx context.Context, actor Actor, deckID uint, payload dto.AddCardsRequest) ([]dto.CardResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, err
	}
	if _, err := s.ownedDeck(ctx, actor, deckID, false); err != nil {
		return nil, err
	}

	cards := s.buildCards(deckID, payload.Cards)
	if err := s.decks.CreateCards(ctx, cards); err != nil {
		return nil, err
	}
	s.dashboards.Invalidate(ctx, actor.ID)
	return dto.NewCardResponseSlice(cards), nil
}

func (s *flashcardService) UpdateCard(ctx context.Context, actor Actor, deckID, cardID uint, payload dto.CardUpdateRequest) (dto.CardResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CardResponse{}, err
	}
	if _, err := s.ownedDeck(ctx, actor, deckID, false); err != nil {
		return dto.CardResponse{}, err
	}

	card, err := s.loadCard(ctx, deckID, cardID)
	if err != nil {
		return dto.CardResponse{}, err
	}
	if payload.Front != nil {
		card.Front = s.plain(*payload.Front)
	}
	if payload.Back != nil {
		card.Back = s.plain(*payload.Back)
	}
	if payload.Hint != nil {
		card.Hint = s.plain(*payload.Hint)
	}

	if err := s.decks.UpdateCard(ctx, &card); err != nil {
		return dto.CardResponse{}, err
	}
	return dto.NewCardResponse(card), nil
}

func (s *flashcardService) DeleteCard(ctx context.Context, actor Actor, deckID, cardID uint) error {
	if _, err := s.ownedDeck(ctx, actor, deckID, false); err != nil {
		return err
	}
	if err := s.decks.DeleteCard(ctx, deckID, cardID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCardNotFound
		}
		return err
	}
	s.dashboards.Invalidate(ctx, actor.ID)
	return nil
}

func (s *flashcardService) Study(ctx context.Context, actor Actor, deckID uint, query dto.StudyQuery) (dto.StudySessionResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return dto.StudySessionResponse{}, err
	}
	deck, err := s.ownedDeck(ctx, actor, deckID, true)
	if err != nil {
		return dto.StudySessionResponse{}, err
	}

	mode := query.Mode
	if mode == "" {
		mode = dto.StudyModeLearn
	}

	now := s.now()
	rng := rand.New(rand.NewSource(now.UnixNano()))
	selection := study.Select(deck.Cards, mode, query.Limit, now, rng)

	return dto.StudySessionResponse{
		DeckID:   deck.ID,
		Mode:     mode,
		DueCount: selection.DueCount,
		NewCount: selection.NewCount,
		Cards:    dto.NewCardResponseSlice(selection.Cards),
	}, nil
}

func (s *flashcardService) Review(ctx context.Context, actor Actor, deckID, cardID uint, payload dto.ReviewRequest) (dto.CardResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CardResponse{}, err
	}
	if _, err := s.ownedDeck(ctx, actor, deckID, false); err != nil {
		return dto.CardResponse{}, err
	}

	card, err := s.loadCard(ctx, deckID, cardID)
	if err != nil {
		return dto.CardResponse{}, err
	}

	reviewed, err := study.Review(card, payload.Rating, s.now())
	if err != nil {
		return dto.CardResponse{}, err
	}
	if err := s.decks.UpdateCard(ctx, &reviewed); err != nil {
		return dto.CardResponse{}, err
	}

	s.dashboards.Invalidate(ctx, actor.ID)
	s.logger.Debug().Uint("card_id", cardID).Str("rating", payload.Rating).Int("box", reviewed.Box).Msg("card reviewed")
	return dto.NewCardResponse(reviewed), nil
}

// checkClass ensures a deck is only shared with a class the actor belongs to.
func (s *flashcardService) checkClass(ctx context.Context, actor Actor, classID *uint) error {
	if classID == nil || *classID == 0 {
		return nil
	}
	_, err := s.access.requireView(ctx, actor, *classID)
	return err
}

func (s *flashcardService) loadDeck(ctx context.Context, id uint, withCards bool) (models.Deck, error) {
	deck, err := s.decks.GetDeck(ctx, id, withCards)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Deck{}, ErrDeckNotFound
		}
		return models.Deck{}, err
	}
	return deck, nil
}

func (s *flashcardService) ownedDeck(ctx context.Context, actor Actor, id uint, withCards bool) (models.Deck, error) {
	deck, err := s.loadDeck(ctx, id, withCards)
	if err != nil {
		return models.Deck{}, err
	}
	if deck.OwnerID != actor.ID {
		return models.Deck{}, ErrNotDeckOwner
	}
	return deck, nil
}

// readableDeck allows the owner, and class viewers for public decks shared with a class.
func (s *flashcardService) readableDeck(ctx context.Context, actor Actor, id uint) (models.Deck, error) {
	deck, err := s.loadDeck(ctx, id, true)
	if err != nil {
		return models.Deck{}, err
	}
	if deck.OwnerID == actor.ID {
		return deck, nil
	}
	if !deck.Public || deck.ClassID == nil {
		return models.Deck{}, ErrDeckNotFound
	}
	if _, err := s.access.requireView(ctx, actor, *deck.ClassID); err != nil {
		if errors.Is(err, ErrForbidden) || errors.Is(err, ErrClassNotFound) {
			return models.Deck{}, ErrDeckNotFound
		}
		return models.Deck{}, err
	}
	return deck, nil
}

func (s *flashcardService) loadCard(ctx context.Context, deckID, cardID uint) (models.Flashcard, error) {
	card, err := s.decks.GetCard(ctx, deckID, cardID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Flashcard{}, ErrCardNotFound
		}
		return models.Flashcard{}, err
	}
	return card, nil
}

func (s *flashcardService) buildCards(deckID uint, inputs []dto.CardInput) []models.Flashcard {
	cards := make([]models.Flashcard, 0, len(inputs))
	for _, input := range inputs {
		front := s.plain(input.Front)
		back := s.plain(input.Back)
		if front == "" || back == "" {
			continue
		}
		cards = append(cards, models.Flashcard{DeckID: deckID, Front: front, Back: back, Hint: s.plain(input.Hint)})
	}
	return cards
}

// plain strips markup and keeps literal characters so card text compares as typed.
func (s *flashcardService) plain(value string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(value)))
}
