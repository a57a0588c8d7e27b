package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/dto"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/middleware"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/service"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/utils"
)

const defaultUserPageSize = 20

// UserHandler exposes the coordinator user directory and parent links.
type UserHandler struct {
	service service.UserService
	logger  zerolog.Logger
}

// NewUserHandler constructs the handler.
func NewUserHandler(service service.UserService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		logger:  logger.With().Str("component", "user_handler").Logger(),
	}
}

// Register attaches user endpoints.
func (h *UserHandler) Register(router fiber.Router) {
	coordinatorOnly := middleware.RequireRole(middleware.AuthRoleCoordinator)

	router.Get("", coordinatorOnly, h.list)
	router.Post("", coordinatorOnly, h.create)
	router.Post("/parent-links", coordinatorOnly, h.linkParent)
	router.Get("/children", middleware.WithAuth(h.children, middleware.AuthOptions{Role: middleware.AuthRoleParent}))
}

func (h *UserHandler) list(c *fiber.Ctx) error {
	var query dto.UserListQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	users, total, err := h.service.List(c.UserContext(), actorFromContext(c), query)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	page, pageSize := query.Page, query.PageSize
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultUserPageSize
	}
	return utils.OK(c, users, "users retrieved", utils.PageMeta{Page: page, PageSize: pageSize, Total: total})
}

func (h *UserHandler) create(c *fiber.Ctx) error {
	var payload dto.CreateUserRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	user, err := h.service.Create(c.UserContext(), actorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendCreated(c, "user created", user)
}

func (h *UserHandler) linkParent(c *fiber.Ctx) error {
	var payload dto.LinkParentRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	student, err := h.service.LinkParent(c.UserContext(), actorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "parent linked", student)
}

func (h *UserHandler) children(c *fiber.Ctx) error {
	children, err := h.service.Children(c.UserContext(), actorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "children retrieved", children)
}
