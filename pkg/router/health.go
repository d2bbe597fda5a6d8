package router

import (
	"licenseguard/backend/internal/api"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupHealthRoutes registers health, readiness and metrics endpoints
func (r *Router) setupHealthRoutes() {
	healthHandler := api.NewHealthHandler(r.Container.Health, version(), r.Hub.ActiveConnections)
	healthHandler.RegisterHealthRoutes(r.Engine)

	// Plain up/down answer for load balancers
	r.Engine.GET("/ready", gin.WrapF(r.Container.Health.HTTPHandler()))

	r.Engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.Container.Registry, promhttp.HandlerOpts{})))
}
