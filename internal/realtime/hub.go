// Package realtime pushes each user's events (new notifications, new direct
// messages, read receipts) to their open websocket connections.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pulse-social/pulse/internal/config"
	"github.com/pulse-social/pulse/pkg/log"
	"github.com/pulse-social/pulse/pkg/pubsub"
)

var ErrHubStopped = errors.New("realtime hub stopped")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type userMessage struct {
	UserID  int64
	Message []byte
}

// Hub tracks connected clients by user and relays events from the event bus.
// One pattern subscription covers every user's channel.
type Hub struct {
	clients    map[int64]map[string]*Client // userID -> clientID -> client
	register   chan *Client
	unregister chan *Client
	subscriber pubsub.Subscriber
	config     config.WebSocketConfig
	mu         sync.RWMutex
	done       chan struct{}
}

func NewHub(cfg config.WebSocketConfig, subscriber pubsub.Subscriber) *Hub {
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}
	if cfg.PingInterval <= 0 || cfg.PingInterval >= cfg.PongWait {
		cfg.PingInterval = cfg.PongWait * 9 / 10
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = 10 * time.Second
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 4096
	}
	return &Hub{
		clients:    make(map[int64]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		subscriber: subscriber,
		config:     cfg,
		done:       make(chan struct{}),
	}
}

// Run subscribes to the event bus and serves the hub until ctx is done. All
// connected clients are closed on return.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	events, err := h.subscriber.SubscribePattern(ctx, pubsub.UserPattern())
	if err != nil {
		return err
	}

	l := log.L()
	l.Info().Str(log.FieldChannel, pubsub.UserPattern()).Msg("realtime hub started")

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			l.Info().Msg("realtime hub stopped")
			return nil

		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.clients[client.UserID]; !ok {
				h.clients[client.UserID] = make(map[string]*Client)
			}
			h.clients[client.UserID][client.ID] = client
			h.mu.Unlock()
			l.Debug().Str("client_id", client.ID).Int64(log.FieldUserID, client.UserID).Msg("client registered")

		case client := <-h.unregister:
			h.remove(client)
			l.Debug().Str("client_id", client.ID).Int64(log.FieldUserID, client.UserID).Msg("client unregistered")

		case ev, ok := <-events:
			if !ok {
				h.closeAll()
				l.Warn().Msg("event subscription closed")
				return nil
			}
			data, err := json.Marshal(ev)
			if err != nil {
				l.Warn().Err(err).Str("event", ev.Type).Msg("failed to encode event")
				continue
			}
			h.fanOut(&userMessage{UserID: ev.UserID, Message: data})
		}
	}
}

func (h *Hub) fanOut(msg *userMessage) {
	var slow []*Client

	h.mu.RLock()
	for _, client := range h.clients[msg.UserID] {
		if !client.enqueue(msg.Message) {
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.remove(client)
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	userClients, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	if _, ok := userClients[client.ID]; !ok {
		return
	}
	delete(userClients, client.ID)
	if len(userClients) == 0 {
		delete(h.clients, client.UserID)
	}
	client.closeSend()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, userClients := range h.clients {
		for _, client := range userClients {
			client.closeSend()
		}
		delete(h.clients, userID)
	}
}

func (h *Hub) Register(client *Client) error {
	select {
	case h.register <- client:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount returns how many connections userID has open.
func (h *Hub) ClientCount(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Serve upgrades the request to a websocket for userID and starts its
// pumps.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID int64) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := newClient(uuid.NewString(), userID, h, conn, h.config)
	if err := h.Register(client); err != nil {
		conn.Close()
		return err
	}

	go client.writeLoop()
	go client.readLoop()
	return nil
}

// Done is closed once Run returns.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}
