package network

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pawsteps/stepcat/internal/events"
	"github.com/pawsteps/stepcat/internal/platform/logger"
	"github.com/pawsteps/stepcat/internal/platform/metrics"
)

// Hub maintains the set of active clients and broadcasts care events to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex
	logger     *logger.Logger
	actions    Actions
	sendBuffer int
}

// NewHub initializes a new WebSocket Hub. actions is the server surface
// incoming client commands are routed to.
func NewHub(log *logger.Logger, actions Actions, broadcastBuffer, sendBuffer int) *Hub {
	if broadcastBuffer <= 0 {
		broadcastBuffer = 64
	}
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	return &Hub{
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     log,
		actions:    actions,
		sendBuffer: sendBuffer,
	}
}

// Run starts the Hub's main loop to handle client connections and broadcasts.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("WebSocket Hub shutting down.")
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			metrics.Get().WSConnect()
			h.logger.Info("New WebSocket client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				metrics.Get().WSDisconnect()
				h.logger.Info("WebSocket client disconnected")
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
					metrics.Get().WSMessageOut()
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastEvent serializes a care event and sends it to all clients.
func (h *Hub) BroadcastEvent(event events.CareEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to serialize CareEvent for WebSocket broadcast: " + err.Error())
		return
	}
	h.broadcast <- payload
}

// StartEventPoller spawns a goroutine that polls the CareLog and pushes new
// events to the Hub. This keeps the Hub an observer at the boundary: the
// core exposes plain query/mutation functions, not streams.
func (h *Hub) StartEventPoller(ctx context.Context, careLog *events.CareLog) {
	go func() {
		pollInterval := time.NewTicker(200 * time.Millisecond)
		defer pollInterval.Stop()

		lastProcessedEvent := 0

		for {
			select {
			case <-ctx.Done():
				return
			case <-pollInterval.C:
				allEvents := careLog.Replay()
				newEventsCount := len(allEvents) - lastProcessedEvent

				if newEventsCount > 0 {
					newEvents := allEvents[lastProcessedEvent:]
					for _, event := range newEvents {
						h.BroadcastEvent(event)
					}
					lastProcessedEvent = len(allEvents)
				}
			}
		}
	}()
}
