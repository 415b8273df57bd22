package server

import (
	"encoding/json"
	"log"
	"time"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// IssueWSTicket handles POST /api/ws/ticket. The ticket authenticates a
// single upgrade on GET /api/ws?ticket= and expires after WSTicketTTL.
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	userID, _ := currentUserID(c)
	if s.redis == nil {
		return models.RespondWithAppError(c, models.NewUnavailableError("Realtime notifications are unavailable"))
	}
	ticket, err := s.auth.IssueWSTicket(c.UserContext(), userID)
	if err != nil {
		return s.respondError(c, models.NewInternalError(err))
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"ticket":     ticket,
		"expires_in": int(middleware.WSTicketTTL.Seconds()),
	})
}

// WebsocketHandler returns a websocket handler that registers connections with the Hub.
// Authentication is handled by route middleware and userID is read from connection locals.
func (s *Server) WebsocketHandler() fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		uid, ok := conn.Locals("userID").(uint)
		if !ok || s.hub == nil {
			if cerr := conn.Close(); cerr != nil {
				log.Printf("websocket close error: %v", cerr)
			}
			return
		}

		client, err := s.hub.Register(uid, conn)
		if err != nil {
			log.Printf("WebSocket Notification: Failed to register user %d: %v", uid, err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}
		defer s.hub.UnregisterClient(client)

		hello, err := json.Marshal(notifications.Event{
			Type:      notifications.EventConnected,
			Payload:   map[string]interface{}{"user_id": uid},
			CreatedAt: time.Now().UTC(),
		})
		if err == nil {
			client.TrySend(hello)
		}

		go client.WritePump()
		client.ReadPump()
	})

	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return upgrade(c)
	}
}
