package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/dto"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/service"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/utils"
)

// PracticeTestHandler exposes practice test history and submission.
type PracticeTestHandler struct {
	service service.PracticeTestService
	logger  zerolog.Logger
}

// NewPracticeTestHandler constructs the handler.
func NewPracticeTestHandler(service service.PracticeTestService, logger zerolog.Logger) *PracticeTestHandler {
	return &PracticeTestHandler{
		service: service,
		logger:  logger.With().Str("component", "practice_test_handler").Logger(),
	}
}

// Register attaches practice test endpoints.
func (h *PracticeTestHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Post("/:id/submit", h.submit)
}

func (h *PracticeTestHandler) list(c *fiber.Ctx) error {
	var deckID *uint
	if raw, err := parseQueryInt(c, "deck_id"); err != nil || raw < 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid deck_id")
	} else if raw > 0 {
		id := uint(raw)
		deckID = &id
	}

	tests, err := h.service.List(c.UserContext(), actorFromContext(c), deckID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "practice tests retrieved", tests)
}

func (h *PracticeTestHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidID(c, err)
	}

	test, err := h.service.Get(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "practice test retrieved", test)
}

func (h *PracticeTestHandler) submit(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidID(c, err)
	}

	var payload dto.PracticeTestSubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	test, err := h.service.Submit(c.UserContext(), actorFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "practice test graded", test)
}
