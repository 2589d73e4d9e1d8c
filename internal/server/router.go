// Package server provides HTTP server setup for the detection service.
package server

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/minisoc-systems/minisoc/internal/handlers"
	"github.com/minisoc-systems/minisoc/internal/middleware"
)

// NewRouter constructs a ServeMux with the service routes registered.
func NewRouter(h *handlers.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", h.HealthCheck)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/ingest", h.Ingest)
	mux.HandleFunc("/events", h.Events)
	mux.HandleFunc("/incidents", h.Incidents)

	mux.HandleFunc("/alerts", h.Alerts)
	mux.HandleFunc("/alerts/", alertRouteHandler(h))

	return middleware.RequestID(mux)
}

// alertRouteHandler routes /alerts/{id}/* requests to appropriate handlers.
func alertRouteHandler(h *handlers.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/status"):
			h.UpdateAlertStatus(w, r)
		default:
			h.GetAlert(w, r)
		}
	}
}
