package network

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pawsteps/stepcat/internal/domain/cat"
	"github.com/pawsteps/stepcat/internal/platform/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Care actions are human-paced; sensor readings are not rate limited.
	careActionCooldown = 1 * time.Second
)

// Actions is the server surface incoming client commands are routed to.
type Actions interface {
	Feed(ctx context.Context) (cat.State, error)
	Pet(ctx context.Context) (bool, cat.State, error)
	Sleep(ctx context.Context, duration time.Duration) (cat.State, error)
	DrinkWater(ctx context.Context, amountML int) (int, error)
	StepReading(value int64, at time.Time)
}

// ClientCommand represents an incoming command from the companion app.
type ClientCommand struct {
	Type    string          `json:"type"`    // "FEED", "PET", "SLEEP", "DRINK_WATER", "STEP_READING"
	Payload json.RawMessage `json:"payload"` // Command-specific data
}

// commandResult is what the client gets back for a care action.
type commandResult struct {
	Type  string      `json:"type"`
	OK    bool        `json:"ok"`
	Error string      `json:"error,omitempty"`
	Cat   *cat.State  `json:"cat,omitempty"`
	Extra interface{} `json:"extra,omitempty"`
}

// Client object to hold connection status. Holds a Hub ref to allow unregister.
type Client struct {
	hub            *Hub
	conn           *websocket.Conn
	send           chan []byte
	lastActionTime time.Time
}

// NewClient creates a new WebSocket client and returns it.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, hub.sendBuffer),
	}
}

// Register adds the client to the hub.
func (c *Client) Register() {
	c.hub.register <- c
}

// ReadPump pumps messages from the websocket connection to the hub.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Error("WebSocket read error: " + err.Error())
			}
			break
		}
		metrics.Get().WSMessageIn()

		var cmd ClientCommand
		if err := json.Unmarshal(message, &cmd); err != nil {
			c.hub.logger.Error("Failed to parse ClientCommand from WebSocket: " + err.Error())
			continue
		}

		c.handleCommand(cmd)
	}
}

func (c *Client) handleCommand(cmd ClientCommand) {
	// Sensor readings bypass the cooldown: the step service has its own
	// bounded queue and drops under pressure.
	if cmd.Type == "STEP_READING" {
		c.handleStepReading(cmd.Payload)
		return
	}

	if time.Since(c.lastActionTime) < careActionCooldown {
		c.hub.logger.Warn("Rate limit exceeded for client command " + cmd.Type)
		return
	}
	c.lastActionTime = time.Now()

	ctx := context.Background()

	switch cmd.Type {
	case "FEED":
		state, err := c.hub.actions.Feed(ctx)
		c.reply(cmd.Type, state, nil, err)
	case "PET":
		accepted, state, err := c.hub.actions.Pet(ctx)
		if err == nil && !accepted {
			c.reply(cmd.Type, state, map[string]bool{"rate_limited": true}, nil)
			return
		}
		c.reply(cmd.Type, state, nil, err)
	case "SLEEP":
		c.handleSleep(cmd.Payload)
	case "DRINK_WATER":
		c.handleDrinkWater(cmd.Payload)
	default:
		c.hub.logger.Warn("Unknown ClientCommand type: " + cmd.Type)
	}
}

func (c *Client) handleSleep(rawPayload []byte) {
	var parsed struct {
		Hours float64 `json:"hours"`
	}
	if err := json.Unmarshal(rawPayload, &parsed); err != nil {
		c.hub.logger.Warn("Failed to parse SLEEP payload: " + err.Error())
		return
	}

	duration := time.Duration(parsed.Hours * float64(time.Hour))
	state, err := c.hub.actions.Sleep(context.Background(), duration)
	c.reply("SLEEP", state, nil, err)
}

func (c *Client) handleDrinkWater(rawPayload []byte) {
	var parsed struct {
		AmountML int `json:"amount_ml"`
	}
	if err := json.Unmarshal(rawPayload, &parsed); err != nil {
		c.hub.logger.Warn("Failed to parse DRINK_WATER payload: " + err.Error())
		return
	}

	total, err := c.hub.actions.DrinkWater(context.Background(), parsed.AmountML)
	if err != nil {
		c.sendResult(commandResult{Type: "DRINK_WATER", OK: false, Error: err.Error()})
		return
	}
	c.sendResult(commandResult{Type: "DRINK_WATER", OK: true, Extra: map[string]int{"total_ml": total}})
}

func (c *Client) handleStepReading(rawPayload []byte) {
	var parsed struct {
		Value       int64 `json:"value"`
		TimestampMS int64 `json:"timestamp_ms"`
	}
	if err := json.Unmarshal(rawPayload, &parsed); err != nil {
		c.hub.logger.Warn("Failed to parse STEP_READING payload: " + err.Error())
		return
	}

	at := time.Now()
	if parsed.TimestampMS > 0 {
		at = time.UnixMilli(parsed.TimestampMS)
	}
	c.hub.actions.StepReading(parsed.Value, at)
}

func (c *Client) reply(cmdType string, state cat.State, extra interface{}, err error) {
	if err != nil {
		c.sendResult(commandResult{Type: cmdType, OK: false, Error: err.Error()})
		return
	}
	c.sendResult(commandResult{Type: cmdType, OK: true, Cat: &state, Extra: extra})
}

func (c *Client) sendResult(result commandResult) {
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
		metrics.Get().WSMessageOut()
	default:
		// Slow client; the write pump will clean up on disconnect.
	}
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
