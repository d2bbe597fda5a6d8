package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"licenseguard/backend/internal/models"
	"licenseguard/backend/internal/service"
	"licenseguard/backend/pkg/lock"
	"licenseguard/backend/pkg/logger"
	wstypes "licenseguard/backend/pkg/ws"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChat struct {
	session *models.ChatSession
	// block holds PostMessage until closed
	block chan struct{}
	// waitForDeadline makes PostMessage behave like a lock wait that never succeeds
	waitForDeadline bool
}

func (f *fakeChat) GetOrCreateActiveSession(ctx context.Context, userID uuid.UUID) (*models.ChatSession, error) {
	return f.session, nil
}

func (f *fakeChat) PostMessage(ctx context.Context, userID uuid.UUID, sessionID *uuid.UUID, text string) (*models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &service.ValidationError{Field: "message", Message: "is required"}
	}
	if f.waitForDeadline {
		<-ctx.Done()
		return nil, fmt.Errorf("lock chat session: %w", fmt.Errorf("%w: %v", lock.ErrNotAcquired, ctx.Err()))
	}
	if f.block != nil {
		<-f.block
	}
	return &models.Message{
		ID:        uuid.New(),
		SessionID: f.session.ID,
		Seq:       2,
		Role:      models.RoleAssistant,
		Content:   "echo: " + text,
		CreatedAt: time.Now().UTC(),
	}, nil
}

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func dial(t *testing.T, hub *Hub, userID uuid.UUID) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/ws/chat", func(c *gin.Context) {
		c.Set("userID", userID)
		hub.ServeWs(c)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/chat", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestHub_ChatRoundTrip(t *testing.T) {
	session := &models.ChatSession{ID: uuid.New(), Status: models.SessionActive}
	hub := NewHub(&fakeChat{session: session}, nil, 0, logger.Discard())
	userID := uuid.New()
	conn := dial(t, hub, userID)

	first := readFrame(t, conn)
	assert.Equal(t, wstypes.TypeSession, first.Type)
	var gotSession models.ChatSession
	require.NoError(t, json.Unmarshal(first.Payload, &gotSession))
	assert.Equal(t, session.ID, gotSession.ID)
	assert.Equal(t, 1, hub.ActiveConnections())

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":    wstypes.TypeChat,
		"payload": wstypes.ChatPayload{Message: "hello"},
	}))

	reply := readFrame(t, conn)
	assert.Equal(t, wstypes.TypeMessage, reply.Type)
	var msg models.Message
	require.NoError(t, json.Unmarshal(reply.Payload, &msg))
	assert.Equal(t, "echo: hello", msg.Content)
	assert.Equal(t, models.RoleAssistant, msg.Role)
}

func TestHub_ErrorsAndPing(t *testing.T) {
	session := &models.ChatSession{ID: uuid.New(), Status: models.SessionActive}
	hub := NewHub(&fakeChat{session: session}, []string{"*"}, time.Second, logger.Discard())
	conn := dial(t, hub, uuid.New())
	_ = readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": wstypes.TypePing}))
	assert.Equal(t, wstypes.TypePong, readFrame(t, conn).Type)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":    wstypes.TypeChat,
		"payload": wstypes.ChatPayload{Message: "  "},
	}))
	errFrame := readFrame(t, conn)
	assert.Equal(t, wstypes.TypeError, errFrame.Type)

	var payload wstypes.ErrorPayload
	require.NoError(t, json.Unmarshal(errFrame.Payload, &payload))
	assert.Equal(t, "VALIDATION_ERROR", payload.Code)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":    wstypes.TypeChat,
		"payload": wstypes.ChatPayload{Message: "hi", SessionID: "not-a-uuid"},
	}))
	require.NoError(t, json.Unmarshal(readFrame(t, conn).Payload, &payload))
	assert.Equal(t, "SESSION_NOT_FOUND", payload.Code)
}

func TestHub_OneChatInFlightPerConnection(t *testing.T) {
	session := &models.ChatSession{ID: uuid.New(), Status: models.SessionActive}
	chat := &fakeChat{session: session, block: make(chan struct{})}
	hub := NewHub(chat, nil, time.Second, logger.Discard())
	conn := dial(t, hub, uuid.New())
	_ = readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":    wstypes.TypeChat,
		"payload": wstypes.ChatPayload{Message: "first"},
	}))
	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":    wstypes.TypeChat,
		"payload": wstypes.ChatPayload{Message: "second"},
	}))

	rejected := readFrame(t, conn)
	assert.Equal(t, wstypes.TypeError, rejected.Type)
	var payload wstypes.ErrorPayload
	require.NoError(t, json.Unmarshal(rejected.Payload, &payload))
	assert.Equal(t, "REPLY_PENDING", payload.Code)

	close(chat.block)

	reply := readFrame(t, conn)
	assert.Equal(t, wstypes.TypeMessage, reply.Type)
	var msg models.Message
	require.NoError(t, json.Unmarshal(reply.Payload, &msg))
	assert.Equal(t, "echo: first", msg.Content)
}

func TestHub_ChatFrameDeadline(t *testing.T) {
	session := &models.ChatSession{ID: uuid.New(), Status: models.SessionActive}
	hub := NewHub(&fakeChat{session: session, waitForDeadline: true}, nil, time.Second, logger.Discard())
	hub.chatTimeout = 50 * time.Millisecond
	conn := dial(t, hub, uuid.New())
	_ = readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":    wstypes.TypeChat,
		"payload": wstypes.ChatPayload{Message: "hello"},
	}))

	errFrame := readFrame(t, conn)
	assert.Equal(t, wstypes.TypeError, errFrame.Type)
	var payload wstypes.ErrorPayload
	require.NoError(t, json.Unmarshal(errFrame.Payload, &payload))
	assert.Equal(t, "RESOURCE_BUSY", payload.Code)
}
