package router

import (
	"context"

	"collab_chat_service/internal/chat/app"
	"collab_chat_service/pkg/logger"
	"collab_chat_service/pkg/middlewares"
	"collab_chat_service/pkg/token"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes 注册聊天相关的路由
func RegisterRoutes(r *fiber.App, chatWebsocket *app.ChatWebsocketHandler) {
	r.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// 執行中切換 debug log, 只限 admin
	r.Post("/debug", middlewares.JWTMiddleware(), func(c *fiber.Ctx) error {
		if role, _ := c.Locals(middlewares.TokenRole).(string); role != string(token.RoleAdmin) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin only", "code": "forbidden"})
		}
		var body struct {
			Enabled bool `json:"enabled"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body", "code": "invalid_request"})
		}
		logger.Log.SetDebugMode(body.Enabled)
		return c.JSON(fiber.Map{"debug": logger.Log.DebugMode()})
	})

	ws := r.Group("/ws", middlewares.JWTMiddleware(), func(c *fiber.Ctx) error {
		// 只接受 websocket upgrade
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{
			"error": "websocket upgrade required",
			"code":  "invalid_request",
		})
	})

	ws.Get("", websocket.New(func(c *websocket.Conn) {
		chatWebsocket.HandleConnection(context.Background(), c)
	}))
}
