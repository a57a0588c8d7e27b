package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/dto"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/middleware"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/service"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/utils"
)

// AssessmentHandler wires quiz, exam and activity routes.
type AssessmentHandler struct {
	service service.AssessmentService
	logger  zerolog.Logger
}

// NewAssessmentHandler constructs the handler.
func NewAssessmentHandler(service service.AssessmentService, logger zerolog.Logger) *AssessmentHandler {
	return &AssessmentHandler{
		service: service,
		logger:  logger.With().Str("component", "assessment_handler").Logger(),
	}
}

// Register attaches assessment endpoints to the router group.
func (h *AssessmentHandler) Register(router fiber.Router) {
	staff := middleware.AuthOptions{Role: middleware.AuthRoleStaff}

	router.Get("", h.list)
	router.Post("", middleware.WithAuth(h.create, staff))
	router.Get("/:id", h.get)
	router.Patch("/:id", middleware.WithAuth(h.update, staff))
	router.Delete("/:id", middleware.WithAuth(h.delete, staff))
	router.Post("/:id/publish", middleware.WithAuth(h.publish, staff))
	router.Post("/:id/unpublish", middleware.WithAuth(h.unpublish, staff))
	router.Post("/:id/attachment", middleware.WithAuth(h.attach, staff))
}

func (h *AssessmentHandler) list(c *fiber.Ctx) error {
	var query dto.AssessmentQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	assessments, err := h.service.List(c.UserContext(), actorFromContext(c), query)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "assessments retrieved", assessments)
}

func (h *AssessmentHandler) create(c *fiber.Ctx) error {
	var payload dto.AssessmentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	assessment, err := h.service.Create(c.UserContext(), actorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendCreated(c, "assessment created", assessment)
}

func (h *AssessmentHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidID(c, err)
	}

	assessment, err := h.service.Get(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "assessment retrieved", assessment)
}

func (h *AssessmentHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidID(c, err)
	}

	var payload dto.AssessmentUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	assessment, err := h.service.Update(c.UserContext(), actorFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "assessment updated", assessment)
}

func (h *AssessmentHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidID(c, err)
	}

	if err := h.service.Delete(c.UserContext(), actorFromContext(c), id); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "assessment deleted", fiber.Map{"id": id})
}

func (h *AssessmentHandler) publish(c *fiber.Ctx) error {
	return h.setPublished(c, true, "assessment published")
}

func (h *AssessmentHandler) unpublish(c *fiber.Ctx) error {
	return h.setPublished(c, false, "assessment unpublished")
}

func (h *AssessmentHandler) setPublished(c *fiber.Ctx, published bool, message string) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidID(c, err)
	}

	assessment, err := h.service.SetPublished(c.UserContext(), actorFromContext(c), id, published)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, message, assessment)
}

func (h *AssessmentHandler) attach(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidID(c, err)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	assessment, err := h.service.AttachFile(c.UserContext(), actorFromContext(c), id, file)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "attachment uploaded", assessment)
}
