package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/dto"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/middleware"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/service"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/utils"
)

// SubmissionHandler wires answering and grading routes.
type SubmissionHandler struct {
	service service.SubmissionService
	logger  zerolog.Logger
}

// NewSubmissionHandler constructs the handler.
func NewSubmissionHandler(service service.SubmissionService, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service: service,
		logger:  logger.With().Str("component", "submission_handler").Logger(),
	}
}

// RegisterAssessmentRoutes attaches the per-assessment endpoints under /assessments.
func (h *SubmissionHandler) RegisterAssessmentRoutes(router fiber.Router) {
	student := middleware.AuthOptions{Role: middleware.AuthRoleStudent}
	staff := middleware.AuthOptions{Role: middleware.AuthRoleStaff}

	router.Post("/:id/start", middleware.WithAuth(h.start, student))
	router.Put("/:id/answers", middleware.WithAuth(h.save, student))
	router.Post("/:id/submit", middleware.WithAuth(h.submit, student))
	router.Get("/:id/submission", middleware.WithAuth(h.mine, student))
	router.Get("/:id/submissions", middleware.WithAuth(h.listByAssessment, staff))
	router.Post("/:id/regrade", middleware.WithAuth(h.regrade, staff))
}

// Register attaches the submission endpoints.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Get("", middleware.WithAuth(h.listMine, middleware.AuthOptions{Role: middleware.AuthRoleStudent}))
	router.Get("/:id", h.get)
	router.Post("/:id/grade", middleware.WithAuth(h.grade, middleware.AuthOptions{Role: middleware.AuthRoleStaff}))
}

func (h *SubmissionHandler) start(c *fiber.Ctx) error {
	assessmentID, err := parseUintParam(c, "id")
	if err != nil {
		return invalidID(c, err)
	}

	submission, err := h.service.Start(c.UserContext(), actorFromContext(c), assessmentID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "submission started", submission)
}

func (h *SubmissionHandler) save(c *fiber.Ctx) error {
	assessmentID, err := parseUintParam(c, "id")
	if err != nil {
		return invalidID(c, err)
	}

	var payload dto.SaveAnswersRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	submission, err := h.service.SaveAnswers(c.UserContext(), actorFromContext(c), assessmentID, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "answers saved", submission)
}

func (h *SubmissionHandler) submit(c *fiber.Ctx) error {
	assessmentID, err := parseUintParam(c, "id")
	if err != nil {
		return invalidID(c, err)
	}

	var payload dto.SubmitRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return invalidBody(c)
		}
	}

	submission, err := h.service.Submit(c.UserContext(), actorFromContext(c), assessmentID, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "submission received", submission)
}

func (h *SubmissionHandler) mine(c *fiber.Ctx) error {
	assessmentID, err := parseUintParam(c, "id")
	if err != nil {
		return invalidID(c, err)
	}

	submission, err := h.service.Mine(c.UserContext(), actorFromContext(c), assessmentID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "submission retrieved", submission)
}

func (h *SubmissionHandler) listByAssessment(c *fiber.Ctx) error {
	assessmentID, err := parseUintParam(c, "id")
	if err != nil {
		return invalidID(c, err)
	}

	submissions, err := h.service.ListByAssessment(c.UserContext(), actorFromContext(c), assessmentID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "submissions retrieved", submissions)
}

func (h *SubmissionHandler) regrade(c *fiber.Ctx) error {
	assessmentID, err := parseUintParam(c, "id")
	if err != nil {
		return invalidID(c, err)
	}

	result, err := h.service.Regrade(c.UserContext(), actorFromContext(c), assessmentID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "submissions regraded", result)
}

func (h *SubmissionHandler) listMine(c *fiber.Ctx) error {
	submissions, err := h.service.ListMine(c.UserContext(), actorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "submissions retrieved", submissions)
}

func (h *SubmissionHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidID(c, err)
	}

	submission, err := h.service.Get(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "submission retrieved", submission)
}

func (h *SubmissionHandler) grade(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidID(c, err)
	}

	var payload dto.GradeManualRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	submission, err := h.service.GradeManual(c.UserContext(), actorFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "submission graded", submission)
}
