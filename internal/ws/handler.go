package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"licenseguard/backend/internal/api"
	"licenseguard/backend/internal/models"
	"licenseguard/backend/internal/service"
	"licenseguard/backend/pkg/logger"
	"licenseguard/backend/pkg/middleware"
	wstypes "licenseguard/backend/pkg/ws"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024

	// Used when the hub is given no reply timeout
	defaultReplyTimeout = 30 * time.Second
)

// ChatService is the part of the chat service the socket needs
type ChatService interface {
	GetOrCreateActiveSession(ctx context.Context, userID uuid.UUID) (*models.ChatSession, error)
	PostMessage(ctx context.Context, userID uuid.UUID, sessionID *uuid.UUID, text string) (*models.Message, error)
}

// Client is one WebSocket connection of an authenticated user
type Client struct {
	ID     string
	Conn   *websocket.Conn
	Send   chan []byte
	UserID uuid.UUID
	Hub    *Hub

	inflight sync.WaitGroup
	// set while a chat frame of this connection is being answered
	busy atomic.Bool
}

// Hub tracks connections per user so replies reach every tab the user has open
type Hub struct {
	mu       sync.RWMutex
	clients  map[uuid.UUID]map[*Client]struct{}
	chat     ChatService
	log      *logger.Logger
	upgrader websocket.Upgrader
	// deadline for answering one chat frame, lock waits included
	chatTimeout time.Duration
}

// NewHub creates a hub. allowedOrigins of nil or ["*"] accepts any origin.
// replyTimeout is the assistant reply timeout; zero selects a default.
func NewHub(chat ChatService, allowedOrigins []string, replyTimeout time.Duration, log *logger.Logger) *Hub {
	if replyTimeout <= 0 {
		replyTimeout = defaultReplyTimeout
	}
	h := &Hub{
		clients:     make(map[uuid.UUID]map[*Client]struct{}),
		chat:        chat,
		log:         log.With("component", "ws"),
		chatTimeout: replyTimeout + writeWait,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin:      originChecker(allowedOrigins),
		HandshakeTimeout: 10 * time.Second,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || (len(allowed) == 1 && allowed[0] == "*") {
		return func(r *http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimSpace(o)] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.clients[c.UserID]
	if !ok {
		conns = make(map[*Client]struct{})
		h.clients[c.UserID] = conns
	}
	conns[c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.clients[c.UserID]
	if !ok {
		return
	}
	if _, ok := conns[c]; ok {
		delete(conns, c)
		close(c.Send)
	}
	if len(conns) == 0 {
		delete(h.clients, c.UserID)
	}
}

// Publish sends a frame to every connection of the user. Slow clients
// whose buffer is full are dropped.
func (h *Hub) Publish(userID uuid.UUID, frame wstypes.Outbound) {
	data, err := json.Marshal(frame)
	if err != nil {
		h.log.Error("Failed to encode frame", "type", frame.Type, "error", err.Error())
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients[userID] {
		select {
		case c.Send <- data:
		default:
			delete(h.clients[userID], c)
			close(c.Send)
			h.log.Warn("Client removed due to blocked channel", "client_id", c.ID)
		}
	}
}

// ActiveConnections returns the number of open connections
func (h *Hub) ActiveConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, conns := range h.clients {
		n += len(conns)
	}
	return n
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, conns := range h.clients {
		for c := range conns {
			close(c.Send)
		}
		delete(h.clients, userID)
	}
}

// ServeWs upgrades an authenticated request and sends the active session
func (h *Hub) ServeWs(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("Error upgrading connection", "error", err.Error())
		return
	}

	client := &Client{
		ID:     uuid.NewString(),
		Conn:   conn,
		Send:   make(chan []byte, 64),
		UserID: userID,
		Hub:    h,
	}
	h.register(client)
	h.log.Info("WebSocket connection established", "client_id", client.ID, "user_id", userID.String())

	go client.WritePump()
	go client.ReadPump()

	session, err := h.chat.GetOrCreateActiveSession(context.Background(), userID)
	if err != nil {
		client.sendError(err)
		return
	}
	client.send(wstypes.Outbound{Type: wstypes.TypeSession, Payload: session})
}

// send queues a frame for this client only
func (c *Client) send(frame wstypes.Outbound) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}

	c.Hub.mu.RLock()
	defer c.Hub.mu.RUnlock()
	if _, ok := c.Hub.clients[c.UserID][c]; !ok {
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}

func (c *Client) sendError(err error) {
	c.send(errorFrame(err))
}

func errorFrame(err error) wstypes.Outbound {
	appErr := api.ToAppError(err)
	return wstypes.Outbound{
		Type:    wstypes.TypeError,
		Payload: wstypes.ErrorPayload{Code: appErr.Code, Message: appErr.Message},
	}
}

// ReadPump reads frames until the connection fails, then waits for
// in-flight chat requests before unregistering.
func (c *Client) ReadPump() {
	defer func() {
		c.inflight.Wait()
		c.Hub.unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.log.Warn("WebSocket read failed", "client_id", c.ID, "error", err.Error())
			}
			return
		}

		var frame wstypes.Inbound
		if err := json.Unmarshal(data, &frame); err != nil {
			c.sendError(&service.ValidationError{Field: "frame", Message: "must be a JSON object"})
			continue
		}

		switch frame.Type {
		case wstypes.TypePing:
			c.send(wstypes.Outbound{Type: wstypes.TypePong})
		case wstypes.TypeChat:
			if !c.busy.CompareAndSwap(false, true) {
				c.sendError(service.ErrReplyPending)
				continue
			}
			c.inflight.Add(1)
			go func() {
				defer c.inflight.Done()
				out, broadcast := c.handleChat(frame.Payload)
				// free the slot before the client can see the answer
				c.busy.Store(false)
				if broadcast {
					c.Hub.Publish(c.UserID, out)
				} else {
					c.send(out)
				}
			}()
		default:
			c.sendError(&service.ValidationError{Field: "type", Message: "unknown frame type"})
		}
	}
}

// handleChat answers one chat frame. Replies are broadcast to every
// connection of the user, errors go to this connection only.
func (c *Client) handleChat(raw json.RawMessage) (wstypes.Outbound, bool) {
	var payload wstypes.ChatPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return errorFrame(&service.ValidationError{Field: "payload", Message: "must be a chat payload"}), false
	}

	var sessionID *uuid.UUID
	if payload.SessionID != "" {
		id, err := uuid.Parse(payload.SessionID)
		if err != nil {
			return errorFrame(service.ErrSessionNotFound), false
		}
		sessionID = &id
	}

	ctx, cancel := context.WithTimeout(logger.ContextWithRequestID(context.Background(), c.ID), c.Hub.chatTimeout)
	defer cancel()

	reply, err := c.Hub.chat.PostMessage(ctx, c.UserID, sessionID, payload.Message)
	if err != nil {
		return errorFrame(err), false
	}
	return wstypes.Outbound{Type: wstypes.TypeMessage, Payload: reply}, true
}

// WritePump writes queued frames and keeps the connection alive with pings
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
