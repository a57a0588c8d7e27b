package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/dto"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/middleware"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/service"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/utils"
)

// AIHandler exposes flashcard and question generation.
type AIHandler struct {
	service service.GenerationService
	logger  zerolog.Logger
}

// NewAIHandler constructs the handler.
func NewAIHandler(service service.GenerationService, logger zerolog.Logger) *AIHandler {
	return &AIHandler{
		service: service,
		logger:  logger.With().Str("component", "ai_handler").Logger(),
	}
}

// Register attaches generation endpoints.
func (h *AIHandler) Register(router fiber.Router) {
	router.Post("/flashcards", h.flashcards)
	router.Post("/questions", middleware.WithAuth(h.questions, middleware.AuthOptions{Role: middleware.AuthRoleStaff}))
}

func (h *AIHandler) flashcards(c *fiber.Ctx) error {
	var payload dto.GenerateFlashcardsRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	deck, err := h.service.GenerateDeck(c.UserContext(), actorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	requestLogger(h.logger, c).Info().Uint("deck_id", deck.ID).Int("cards", deck.CardCount).Msg("flashcards generated")
	return utils.SendCreated(c, "flashcards generated", deck)
}

func (h *AIHandler) questions(c *fiber.Ctx) error {
	var payload dto.GenerateQuestionsRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	drafts, err := h.service.GenerateQuestions(c.UserContext(), actorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "questions generated", drafts)
}
