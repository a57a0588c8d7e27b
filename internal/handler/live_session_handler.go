package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/dto"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/middleware"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/service"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/utils"
)

// LiveSessionHandler exposes live quiz control and presence reporting.
type LiveSessionHandler struct {
	service service.LiveSessionService
	logger  zerolog.Logger
}

// NewLiveSessionHandler constructs the handler.
func NewLiveSessionHandler(service service.LiveSessionService, logger zerolog.Logger) *LiveSessionHandler {
	return &LiveSessionHandler{
		service: service,
		logger:  logger.With().Str("component", "live_session_handler").Logger(),
	}
}

// Register attaches live endpoints under /assessments.
func (h *LiveSessionHandler) Register(router fiber.Router) {
	staff := middleware.AuthOptions{Role: middleware.AuthRoleStaff}
	student := middleware.AuthOptions{Role: middleware.AuthRoleStudent}

	router.Get("/:id/live", h.state)
	router.Post("/:id/live/start", middleware.WithAuth(h.start, staff))
	router.Post("/:id/live/advance", middleware.WithAuth(h.advance, staff))
	router.Post("/:id/live/end", middleware.WithAuth(h.end, staff))
	router.Post("/:id/live/join", middleware.WithAuth(h.join, student))
	router.Post("/:id/live/report", middleware.WithAuth(h.report, student))
}

func (h *LiveSessionHandler) state(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidID(c, err)
	}

	state, err := h.service.State(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "live session retrieved", state)
}

func (h *LiveSessionHandler) start(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidID(c, err)
	}

	state, err := h.service.Start(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	requestLogger(h.logger, c).Info().Uint("assessment_id", id).Msg("live session started")
	return utils.SendSuccess(c, "live session started", state)
}

func (h *LiveSessionHandler) advance(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidID(c, err)
	}

	var payload dto.LiveAdvanceRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	state, err := h.service.Advance(c.UserContext(), actorFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "question advanced", state)
}

func (h *LiveSessionHandler) end(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidID(c, err)
	}

	state, err := h.service.End(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	requestLogger(h.logger, c).Info().Uint("assessment_id", id).Msg("live session ended")
	return utils.SendSuccess(c, "live session ended", state)
}

func (h *LiveSessionHandler) join(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidID(c, err)
	}

	state, err := h.service.Join(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "joined live session", state)
}

func (h *LiveSessionHandler) report(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidID(c, err)
	}

	var payload dto.LiveReportRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	state, err := h.service.Report(c.UserContext(), actorFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "presence recorded", state)
}
