package api

import (
	"net/http"
	"strings"

	"licenseguard/backend/internal/models"
	"licenseguard/backend/internal/service"
	"licenseguard/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ChatHandler serves the chat assistant endpoints
type ChatHandler struct {
	chat *service.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// RegisterRoutes registers the chat routes
func (h *ChatHandler) RegisterRoutes(router *gin.RouterGroup) {
	chat := router.Group("/chat")
	{
		chat.GET("/session", h.GetSession)
		chat.DELETE("/session", h.CloseSession)
		chat.POST("/message", h.PostMessage)
	}
}

// GetSession returns the caller's active session, creating it if needed
func (h *ChatHandler) GetSession(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, service.ErrNotAuthenticated)
		return
	}

	session, err := h.chat.GetOrCreateActiveSession(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// PostMessage sends a message and returns the assistant reply
func (h *ChatHandler) PostMessage(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, service.ErrNotAuthenticated)
		return
	}

	var req models.PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindingError(err))
		return
	}

	var sessionID *uuid.UUID
	if raw := strings.TrimSpace(req.SessionID); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(c, service.ErrSessionNotFound)
			return
		}
		sessionID = &id
	}

	reply, err := h.chat.PostMessage(c.Request.Context(), userID, sessionID, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, reply)
}

// CloseSession ends the caller's active session
func (h *ChatHandler) CloseSession(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, service.ErrNotAuthenticated)
		return
	}

	session, err := h.chat.CloseActiveSession(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}
