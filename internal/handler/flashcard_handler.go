package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/dto"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/service"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/utils"
)

// FlashcardHandler wires deck, card and study routes.
type FlashcardHandler struct {
	decks    service.FlashcardService
	practice service.PracticeTestService
	logger   zerolog.Logger
}

// NewFlashcardHandler constructs the handler.
func NewFlashcardHandler(decks service.FlashcardService, practice service.PracticeTestService, logger zerolog.Logger) *FlashcardHandler {
	return &FlashcardHandler{
		decks:    decks,
		practice: practice,
		logger:   logger.With().Str("component", "flashcard_handler").Logger(),
	}
}

// Register attaches deck endpoints.
func (h *FlashcardHandler) Register(router fiber.Router) {
	router.Get("", h.listDecks)
	router.Post("", h.createDeck)
	router.Get("/:id", h.getDeck)
	router.Patch("/:id", h.updateDeck)
	router.Delete("/:id", h.deleteDeck)
	router.Post("/:id/copy", h.copyDeck)
	router.Post("/:id/cards", h.addCards)
	router.Patch("/:id/cards/:cardId", h.updateCard)
	router.Delete("/:id/cards/:cardId", h.deleteCard)
	router.Post("/:id/cards/:cardId/review", h.review)
	router.Get("/:id/study", h.study)
	router.Post("/:id/practice-tests", h.generatePractice)
}

func (h *FlashcardHandler) listDecks(c *fiber.Ctx) error {
	decks, err := h.decks.ListDecks(c.UserContext(), actorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "decks retrieved", decks)
}

func (h *FlashcardHandler) createDeck(c *fiber.Ctx) error {
	var payload dto.DeckCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}
	payload.Generated = false

	deck, err := h.decks.CreateDeck(c.UserContext(), actorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendCreated(c, "deck created", deck)
}

func (h *FlashcardHandler) getDeck(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidID(c, err)
	}

	deck, err := h.decks.GetDeck(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "deck retrieved", deck)
}

func (h *FlashcardHandler) updateDeck(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidID(c, err)
	}

	var payload dto.DeckUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	deck, err := h.decks.UpdateDeck(c.UserContext(), actorFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "deck updated", deck)
}

func (h *FlashcardHandler) deleteDeck(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidID(c, err)
	}

	if err := h.decks.DeleteDeck(c.UserContext(), actorFromContext(c), id); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "deck deleted", fiber.Map{"id": id})
}

func (h *FlashcardHandler) copyDeck(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidID(c, err)
	}

	deck, err := h.decks.CopyDeck(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendCreated(c, "deck copied", deck)
}

func (h *FlashcardHandler) addCards(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidID(c, err)
	}

	var payload dto.AddCardsRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	cards, err := h.decks.AddCards(c.UserContext(), actorFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendCreated(c, "cards added", cards)
}

func (h *FlashcardHandler) updateCard(c *fiber.Ctx) error {
	deckID, cardID, err := deckAndCard(c)
	if err != nil {
		return invalidID(c, err)
	}

	var payload dto.CardUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	card, err := h.decks.UpdateCard(c.UserContext(), actorFromContext(c), deckID, cardID, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "card updated", card)
}

func (h *FlashcardHandler) deleteCard(c *fiber.Ctx) error {
	deckID, cardID, err := deckAndCard(c)
	if err != nil {
		return invalidID(c, err)
	}

	if err := h.decks.DeleteCard(c.UserContext(), actorFromContext(c), deckID, cardID); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "card deleted", fiber.Map{"id": cardID})
}

func (h *FlashcardHandler) review(c *fiber.Ctx) error {
	deckID, cardID, err := deckAndCard(c)
	if err != nil {
		return invalidID(c, err)
	}

	var payload dto.ReviewRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	card, err := h.decks.Review(c.UserContext(), actorFromContext(c), deckID, cardID, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "review recorded", card)
}

func (h *FlashcardHandler) study(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidID(c, err)
	}

	var query dto.StudyQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	session, err := h.decks.Study(c.UserContext(), actorFromContext(c), id, query)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "study session ready", session)
}

func (h *FlashcardHandler) generatePractice(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidID(c, err)
	}

	var payload dto.PracticeTestCreateRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return invalidBody(c)
		}
	}

	test, err := h.practice.Generate(c.UserContext(), actorFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendCreated(c, "practice test generated", test)
}

func deckAndCard(c *fiber.Ctx) (uint, uint, error) {
	deckID, err := parseUintParam(c, "id")
	if err != nil {
		return 0, 0, err
	}
	cardID, err := parseUintParam(c, "cardId")
	if err != nil {
		return 0, 0, err
	}
	return deckID, cardID, nil
}
