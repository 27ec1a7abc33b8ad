package handlers

import (
	ws "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/skyhostel/sky_hostel/websocket"
	"go.uber.org/zap"
)

type StatusSubscriber interface {
	Register(c *websocket.Client)
	Unregister(c *websocket.Client)
}

type StatusSocketHandler struct {
	hub    StatusSubscriber
	logger *zap.Logger
}

func NewStatusSocketHandler(hub StatusSubscriber, logger *zap.Logger) *StatusSocketHandler {
	return &StatusSocketHandler{hub: hub, logger: logger.Named("ws_handler")}
}

func RequireUpgrade(c *fiber.Ctx) error {
	if !ws.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

// Serve keeps the socket subscribed to one reference until the browser
// disconnects. Incoming frames are ignored.
func (h *StatusSocketHandler) Serve(c *ws.Conn) {
	client := &websocket.Client{RRR: c.Params("rrr"), Conn: c}
	h.hub.Register(client)
	defer func() {
		h.hub.Unregister(client)
		c.Close()
	}()

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if !ws.IsCloseError(err, ws.CloseGoingAway, ws.CloseNormalClosure, ws.CloseAbnormalClosure) {
				h.logger.Debug("WebSocket read error", zap.String("rrr", client.RRR), zap.Error(err))
			}
			return
		}
	}
}
