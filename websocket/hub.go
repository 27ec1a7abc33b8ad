package websocket

import (
	"context"

	"github.com/skyhostel/sky_hostel/models"
	"go.uber.org/zap"
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

type Client struct {
	RRR  string
	Conn Conn
}

type StatusMessage struct {
	RRR      string `json:"rrr"`
	Status   string `json:"status"`
	Previous string `json:"previousStatus"`
}

// Hub fans reconciled status changes out to the browsers watching a
// reference. All subscriber state is owned by the Run goroutine.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan StatusMessage
	clients    map[string]map[*Client]struct{}
	stopped    chan struct{}
	logger     *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan StatusMessage, 64),
		clients:    make(map[string]map[*Client]struct{}),
		stopped:    make(chan struct{}),
		logger:     logger.Named("ws_hub"),
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
	for {
		select {
		case <-ctx.Done():
			for _, subs := range h.clients {
				for c := range subs {
					c.Conn.Close()
				}
			}
			h.clients = make(map[string]map[*Client]struct{})
			return
		case client := <-h.register:
			subs, ok := h.clients[client.RRR]
			if !ok {
				subs = make(map[*Client]struct{})
				h.clients[client.RRR] = subs
			}
			subs[client] = struct{}{}
			h.logger.Debug("Client subscribed", zap.String("rrr", client.RRR))
		case client := <-h.unregister:
			h.remove(client)
		case msg := <-h.broadcast:
			for c := range h.clients[msg.RRR] {
				if err := c.Conn.WriteJSON(msg); err != nil {
					h.logger.Warn("Error sending status to client", zap.String("rrr", msg.RRR), zap.Error(err))
					c.Conn.Close()
					h.remove(c)
				}
			}
		}
	}
}

func (h *Hub) remove(c *Client) {
	subs, ok := h.clients[c.RRR]
	if !ok {
		return
	}
	delete(subs, c)
	if len(subs) == 0 {
		delete(h.clients, c.RRR)
	}
}

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.stopped:
		c.Conn.Close()
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stopped:
	}
}

// PaymentStatusChanged queues the change for delivery. A full queue drops
// the message; browsers fall back to polling.
func (h *Hub) PaymentStatusChanged(_ context.Context, change models.PaymentStatusChange) {
	msg := StatusMessage{RRR: change.RRR, Status: string(change.Current), Previous: string(change.Previous)}
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("Status broadcast queue full, dropping", zap.String("rrr", change.RRR))
	}
}
