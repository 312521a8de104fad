package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bulkops/internal/interfaces"
	"github.com/ternarybob/bulkops/internal/models"
	"golang.org/x/time/rate"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type wsClient struct {
	conn        *websocket.Conn
	mu          sync.Mutex
	requesterID int64 // 0 receives every job
}

// WebSocketHandler streams bulk job lifecycle events to connected clients.
// Progress events are throttled per job; started and finished events always go out.
type WebSocketHandler struct {
	logger           arbor.ILogger
	clients          map[*websocket.Conn]*wsClient
	mu               sync.RWMutex
	throttle         time.Duration
	throttlers       map[string]*rate.Limiter
	throttleMu       sync.Mutex
	serverInstanceID string
}

func NewWebSocketHandler(eventService interfaces.EventService, throttle time.Duration, logger arbor.ILogger) *WebSocketHandler {
	h := &WebSocketHandler{
		logger:           logger,
		clients:          make(map[*websocket.Conn]*wsClient),
		throttle:         throttle,
		throttlers:       make(map[string]*rate.Limiter),
		serverInstanceID: uuid.New().String(),
	}

	if eventService != nil {
		err := eventService.SubscribeAll(h.handleBulkEvent,
			interfaces.EventBulkJobStarted,
			interfaces.EventBulkJobProgress,
			interfaces.EventBulkJobFinished,
		)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to subscribe WebSocket handler to bulk job events")
		}
	}

	logger.Info().
		Str("server_instance_id", h.serverInstanceID).
		Dur("progress_throttle", throttle).
		Msg("WebSocket handler initialized")

	return h
}

// HandleWebSocket upgrades the connection - GET /ws?requester_id=
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	var requesterID int64
	if raw := r.URL.Query().Get("requester_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			WriteError(w, http.StatusBadRequest, "requester_id must be a positive integer")
			return
		}
		requesterID = id
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := &wsClient{conn: conn, requesterID: requesterID}
	h.mu.Lock()
	h.clients[conn] = client
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Int("clients", clientCount).Int64("requester_id", requesterID).Msg("WebSocket client connected")

	h.send(client, h.encode(WSMessage{
		Type:    "connected",
		Payload: map[string]string{"server_instance_id": h.serverInstanceID},
	}))

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		remaining := len(h.clients)
		h.mu.Unlock()

		conn.Close()
		h.logger.Debug().Int("clients", remaining).Msg("WebSocket client disconnected")
	}()

	// Read messages from client (keep connection alive)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket error")
			}
			return
		}
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *WebSocketHandler) handleBulkEvent(ctx context.Context, event interfaces.Event) error {
	snapshot, ok := event.Payload.(models.JobSnapshot)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}

	switch event.Type {
	case interfaces.EventBulkJobProgress:
		if !h.allowProgress(snapshot.ID) {
			return nil
		}
	case interfaces.EventBulkJobFinished:
		h.throttleMu.Lock()
		delete(h.throttlers, snapshot.ID)
		h.throttleMu.Unlock()
	}

	h.broadcast(snapshot.RequesterID, WSMessage{Type: string(event.Type), Payload: snapshot})
	return nil
}

func (h *WebSocketHandler) allowProgress(jobID string) bool {
	if h.throttle <= 0 {
		return true
	}

	h.throttleMu.Lock()
	limiter, ok := h.throttlers[jobID]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(h.throttle), 1)
		h.throttlers[jobID] = limiter
	}
	h.throttleMu.Unlock()

	return limiter.Allow()
}

func (h *WebSocketHandler) broadcast(requesterID int64, msg WSMessage) {
	data := h.encode(msg)
	if data == nil {
		return
	}

	h.mu.RLock()
	targets := make([]*wsClient, 0, len(h.clients))
	for _, c := range h.clients {
		if c.requesterID == 0 || c.requesterID == requesterID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.send(c, data)
	}
}

func (h *WebSocketHandler) encode(msg WSMessage) []byte {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Str("type", msg.Type).Msg("Failed to marshal WebSocket message")
		return nil
	}
	return data
}

func (h *WebSocketHandler) send(c *wsClient, data []byte) {
	if data == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to send WebSocket message")
	}
}
