package api

import (
	"errors"
	"net/http"
	"strconv"

	"licenseguard/backend/internal/models"
	"licenseguard/backend/internal/service"
	"licenseguard/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContentCheckHandler serves content check endpoints
type ContentCheckHandler struct {
	checks    *service.ContentCheckService
	dashboard *service.DashboardService
}

// NewContentCheckHandler creates a new content check handler
func NewContentCheckHandler(checks *service.ContentCheckService, dashboard *service.DashboardService) *ContentCheckHandler {
	return &ContentCheckHandler{checks: checks, dashboard: dashboard}
}

// RegisterRoutes registers content check and dashboard routes
func (h *ContentCheckHandler) RegisterRoutes(router *gin.RouterGroup) {
	checks := router.Group("/content-checks")
	{
		checks.POST("", h.Create)
		checks.GET("", h.ListRecent)
		checks.GET("/recent", h.ListRecent)
		checks.GET("/:id", h.Get)
	}

	router.GET("/dashboard/stats", h.DashboardStats)
}

// Create submits content for analysis. When the engine is unavailable the
// check stays pending; the 502 carries its id and a Location to poll.
func (h *ContentCheckHandler) Create(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, service.ErrNotAuthenticated)
		return
	}

	var req models.CreateContentCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindingError(err))
		return
	}

	check, err := h.checks.Submit(c.Request.Context(), userID, req.Type, req.Ref())
	if err != nil {
		appErr := ToAppError(err)
		if errors.Is(err, service.ErrAnalysisUnavailable) && check != nil {
			c.Header("Location", "/api/content-checks/"+check.ID.String())
			appErr = appErr.WithDetails(gin.H{"checkId": check.ID.String(), "status": check.Status()})
		}
		_ = c.Error(appErr)
		return
	}

	c.JSON(http.StatusCreated, check)
}

// Get returns one of the caller's checks
func (h *ContentCheckHandler) Get(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, service.ErrNotAuthenticated)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, service.ErrContentCheckNotFound)
		return
	}

	check, err := h.checks.Get(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, check)
}

// ListRecent returns the caller's newest checks, ?limit= capped at 100
func (h *ContentCheckHandler) ListRecent(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, service.ErrNotAuthenticated)
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(c, &service.ValidationError{Field: "limit", Message: "must be a positive integer"})
			return
		}
		limit = n
	}

	checks, err := h.checks.ListRecent(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, checks)
}

// DashboardStats returns the caller's counts and recent activity
func (h *ContentCheckHandler) DashboardStats(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, service.ErrNotAuthenticated)
		return
	}

	overview, err := h.dashboard.Overview(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, overview)
}
