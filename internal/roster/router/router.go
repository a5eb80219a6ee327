package router

import (
	"context"

	"chat_roster_service/internal/roster/app"
	"chat_roster_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes register the roster stream route
func RegisterRoutes(r *fiber.App, rosterWebsocket *app.RosterWebsocketHandler) {
	r.Use(middlewares.JWTMiddleware())

	r.Get("/ws/roster", websocket.New(func(c *websocket.Conn) {
		rosterWebsocket.HandleConnection(context.Background(), c)
	}))
}
