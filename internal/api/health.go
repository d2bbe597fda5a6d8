package api

import (
	"net/http"
	"runtime"
	"time"

	"licenseguard/backend/pkg/health"

	"github.com/gin-gonic/gin"
)

// HealthHandler reports component health, uptime and memory use
type HealthHandler struct {
	checker   *health.Checker
	version   string
	startedAt time.Time
	// connections reports open WebSocket connections, if wired
	connections func() int
}

// HealthResponse represents the health check response structure
type HealthResponse struct {
	Status      string                       `json:"status"`
	Timestamp   time.Time                    `json:"timestamp"`
	Version     string                       `json:"version"`
	Uptime      string                       `json:"uptime"`
	Components  map[string]*health.Component `json:"components"`
	Connections int                          `json:"wsConnections"`
	Memory      gin.H                        `json:"memory"`
}

// NewHealthHandler creates a health handler
func NewHealthHandler(checker *health.Checker, version string, connections func() int) *HealthHandler {
	return &HealthHandler{
		checker:     checker,
		version:     version,
		startedAt:   time.Now(),
		connections: connections,
	}
}

// Health returns 200 while every critical component is up, 503 otherwise
func (h *HealthHandler) Health(c *gin.Context) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	response := HealthResponse{
		Status:     "ok",
		Timestamp:  time.Now().UTC(),
		Version:    h.version,
		Uptime:     time.Since(h.startedAt).Round(time.Second).String(),
		Components: h.checker.GetStatus(),
		Memory: gin.H{
			"alloc_mb":  memStats.Alloc / 1024 / 1024,
			"sys_mb":    memStats.Sys / 1024 / 1024,
			"gc_cycles": memStats.NumGC,
		},
	}
	if h.connections != nil {
		response.Connections = h.connections()
	}

	code := http.StatusOK
	if !h.checker.IsSystemHealthy() {
		response.Status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, response)
}

// RegisterHealthRoutes registers health check related routes
func (h *HealthHandler) RegisterHealthRoutes(router gin.IRoutes) {
	router.GET("/health", h.Health)
	router.GET("/api/health", h.Health)
}
