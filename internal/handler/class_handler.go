package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/dto"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/middleware"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/service"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/utils"
)

const defaultLeaderboardLimit = 10

// ClassHandler wires class, membership, leaderboard and resource routes.
type ClassHandler struct {
	classes      service.ClassService
	leaderboards service.LeaderboardService
	resources    service.ResourceService
	logger       zerolog.Logger
}

// NewClassHandler constructs the handler.
func NewClassHandler(classes service.ClassService, leaderboards service.LeaderboardService, resources service.ResourceService, logger zerolog.Logger) *ClassHandler {
	return &ClassHandler{
		classes:      classes,
		leaderboards: leaderboards,
		resources:    resources,
		logger:       logger.With().Str("component", "class_handler").Logger(),
	}
}

// Register attaches class endpoints.
func (h *ClassHandler) Register(router fiber.Router) {
	staff := middleware.AuthOptions{Role: middleware.AuthRoleStaff}
	student := middleware.AuthOptions{Role: middleware.AuthRoleStudent}

	router.Get("", h.list)
	router.Post("", middleware.WithAuth(h.create, middleware.AuthOptions{Role: middleware.AuthRoleTeacher}))
	router.Post("/join", middleware.WithAuth(h.join, student))
	router.Get("/:id", h.get)
	router.Patch("/:id", middleware.WithAuth(h.update, staff))
	router.Delete("/:id", middleware.WithAuth(h.delete, staff))
	router.Post("/:id/join-code", middleware.WithAuth(h.regenerateCode, staff))
	router.Post("/:id/leave", middleware.WithAuth(h.leave, student))
	router.Get("/:id/members", middleware.WithAuth(h.members, staff))
	router.Delete("/:id/members/:studentId", middleware.WithAuth(h.removeMember, staff))
	router.Get("/:id/leaderboard", h.leaderboard)
	router.Get("/:id/resources", h.listResources)
	router.Post("/:id/resources", h.uploadResource)
	router.Delete("/:id/resources/:resourceId", h.deleteResource)
}

func (h *ClassHandler) list(c *fiber.Ctx) error {
	classes, err := h.classes.List(c.UserContext(), actorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "classes retrieved", classes)
}

func (h *ClassHandler) create(c *fiber.Ctx) error {
	var payload dto.ClassCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	class, err := h.classes.Create(c.UserContext(), actorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendCreated(c, "class created", class)
}

func (h *ClassHandler) join(c *fiber.Ctx) error {
	var payload dto.JoinClassRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	class, err := h.classes.Join(c.UserContext(), actorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "joined class", class)
}

func (h *ClassHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidID(c, err)
	}

	class, err := h.classes.Get(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "class retrieved", class)
}

func (h *ClassHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidID(c, err)
	}

	var payload dto.ClassUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	class, err := h.classes.Update(c.UserContext(), actorFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "class updated", class)
}

func (h *ClassHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidID(c, err)
	}

	if err := h.classes.Delete(c.UserContext(), actorFromContext(c), id); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "class deleted", fiber.Map{"id": id})
}

func (h *ClassHandler) regenerateCode(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidID(c, err)
	}

	class, err := h.classes.RegenerateCode(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "join code regenerated", class)
}

func (h *ClassHandler) leave(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidID(c, err)
	}

	if err := h.classes.Leave(c.UserContext(), actorFromContext(c), id); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "left class", fiber.Map{"id": id})
}

func (h *ClassHandler) members(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidID(c, err)
	}

	members, err := h.classes.Members(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "members retrieved", members)
}

func (h *ClassHandler) removeMember(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidID(c, err)
	}
	studentID, err := parseUintParam(c, "studentId")
	if err != nil {
		return invalidID(c, err)
	}

	if err := h.classes.RemoveMember(c.UserContext(), actorFromContext(c), id, studentID); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "member removed", fiber.Map{"class_id": id, "student_id": studentID})
}

func (h *ClassHandler) leaderboard(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidID(c, err)
	}
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}

	board, err := h.leaderboards.Top(c.UserContext(), actorFromContext(c), id, limit)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "leaderboard retrieved", board)
}

func (h *ClassHandler) listResources(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidID(c, err)
	}

	resources, err := h.resources.List(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "resources retrieved", resources)
}

func (h *ClassHandler) uploadResource(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidID(c, err)
	}

	payload := dto.ResourceUploadRequest{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
	}

	file, err := c.FormFile("file")
	if err != nil {
		file = nil
	}

	resource, err := h.resources.Upload(c.UserContext(), actorFromContext(c), id, payload, file)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendCreated(c, "resource uploaded", resource)
}

func (h *ClassHandler) deleteResource(c *fiber.Ctx) error {
	if _, err := parseUintParam(c, "id"); err != nil {
		return invalidID(c, err)
	}
	resourceID, err := parseUintParam(c, "resourceId")
	if err != nil {
		return invalidID(c, err)
	}

	if err := h.resources.Delete(c.UserContext(), actorFromContext(c), resourceID); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "resource deleted", fiber.Map{"id": resourceID})
}
