package router

import (
	"context"

	"uthread_service/internal/realtime/app"
	"uthread_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes wires the realtime surface: the WebSocket endpoint and
// the REST routes that share its use cases. Everything below the swagger
// route requires a verified identity.
// @title uThread Realtime Service API
// @version 1.0
// @description Presence, direct messaging and notification delivery
// @BasePath /
func RegisterRoutes(r *fiber.App, wsHandler *app.RealtimeWebsocketHandler, httpHandler *app.MessagingHTTPHandler) {
	r.Get("/swagger/*", swagger.HandlerDefault)

	r.Use(middlewares.JWTMiddleware())

	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		wsHandler.HandleConnection(context.Background(), c)
	}))

	r.Get("/conversations", httpHandler.ListConversations)
	r.Get("/conversations/:id", httpHandler.GetConversation)
	r.Delete("/conversations/:id", httpHandler.DeleteConversation)
	r.Get("/conversations/:id/messages", httpHandler.GetMessages)
	r.Post("/conversations/:id/read", httpHandler.MarkConversationRead)
	r.Post("/conversations/:id/pin", httpHandler.TogglePin)
	r.Post("/conversations/:id/mute", httpHandler.ToggleMute)

	r.Post("/messages", httpHandler.SendMessage)

	r.Get("/presence", httpHandler.PresenceBatch)

	r.Get("/notifications/unread-count", httpHandler.NotificationUnreadCount)
	r.Post("/notifications/read", httpHandler.MarkNotificationsRead)

	r.Get("/push/public-key", httpHandler.PushPublicKey)
	r.Post("/push/subscribe", httpHandler.PushSubscribe)
	r.Post("/push/unsubscribe", httpHandler.PushUnsubscribe)
}
