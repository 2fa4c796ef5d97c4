package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dealwatch/pkg/metrics"
)

// MetricsHandler serves the prometheus registry.
type MetricsHandler struct {
	handler http.Handler
}

// NewMetricsHandler creates a new metrics handler over the service registry.
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{
		handler: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

// HandleMetrics handles GET /metrics.
func (h *MetricsHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}
