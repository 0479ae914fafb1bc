package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sims-api/internal/dto"
	"github.com/noah-isme/sims-api/internal/service"
	"github.com/noah-isme/sims-api/pkg/response"
)

// ReadinessCheck probes a backing dependency.
type ReadinessCheck func(ctx context.Context) error

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	store   string
	ready   ReadinessCheck
}

// NewMetricsHandler constructs a metrics handler. A nil check reports ready unconditionally.
func NewMetricsHandler(metrics *service.MetricsService, store string, ready ReadinessCheck) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, store: store, ready: ready}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Summary godoc
// @Summary JSON snapshot of request, cache, store and enrollment counters
// @Tags Ops
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /metrics/summary [get]
func (h *MetricsHandler) Summary(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.metrics.Snapshot())
}

// Health responds with a generic OK payload for liveness usage.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, dto.HealthResponse{Status: "ok"})
}

// Ready reports whether the configured store answers.
func (h *MetricsHandler) Ready(c *gin.Context) {
	if h.ready != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.ready(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, dto.HealthResponse{Status: "unavailable", Store: h.store, Error: err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, dto.HealthResponse{Status: "ready", Store: h.store})
}
