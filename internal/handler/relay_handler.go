package handler

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/middleware"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/service"
)

// RelayHandler upgrades authenticated requests to relay websockets.
type RelayHandler struct {
	service service.RelayService
	logger  zerolog.Logger
}

// NewRelayHandler creates a relay handler instance.
func NewRelayHandler(service service.RelayService, logger zerolog.Logger) *RelayHandler {
	return &RelayHandler{
		service: service,
		logger:  logger.With().Str("component", "relay_handler").Logger(),
	}
}

// Register binds the websocket route. The router must already carry JWT auth.
func (h *RelayHandler) Register(router fiber.Router) {
	router.Use(func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		ctx := c.UserContext()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx = middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
		c.Locals("request_ctx", ctx)
		return c.Next()
	})

	router.Get("", websocket.New(h.handleConnection))
}

func (h *RelayHandler) handleConnection(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(uint)
	if userID == 0 {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "user id missing"))
		_ = conn.Close()
		return
	}

	role, _ := conn.Locals("user_role").(string)
	correlation := fmt.Sprint(conn.Locals("correlation_id"))
	baseCtx, _ := conn.Locals("request_ctx").(context.Context)

	opts := service.RelayConnectionOptions{
		UserID:        userID,
		Role:          role,
		CorrelationID: correlation,
		Context:       baseCtx,
	}

	h.logger.Info().Uint("user_id", userID).Str("role", role).Msg("relay websocket connected")
	h.service.ServeConnection(conn, opts)
	h.logger.Info().Uint("user_id", userID).Msg("relay websocket disconnected")
}
