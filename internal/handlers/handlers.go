package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/minisoc-systems/minisoc/internal/httputil"
	"github.com/minisoc-systems/minisoc/internal/logging"
	"github.com/minisoc-systems/minisoc/internal/models"
	"github.com/minisoc-systems/minisoc/internal/repository"
	"github.com/minisoc-systems/minisoc/internal/service"
)

// Handler holds the HTTP handlers for the detection service.
type Handler struct {
	service *service.Service
	logger  *logging.Logger
}

func NewHandler(svc *service.Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: svc, logger: logger}
}

// HealthCheck handles GET /healthz.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "minisoc",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Ingest handles POST /ingest.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req models.IngestEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	event, err := h.service.IngestEvent(r.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			httputil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to ingest event", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to ingest event")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, models.IngestEventResponse{
		Status:  "ok",
		EventID: event.ID,
	})
}

// Events handles GET /events.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	req := &models.EventQueryRequest{
		EventType: r.URL.Query().Get("event_type"),
		SourceIP:  r.URL.Query().Get("source_ip"),
	}

	if v := r.URL.Query().Get("lastMinutes"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil || minutes <= 0 {
			httputil.WriteError(w, http.StatusBadRequest, "lastMinutes must be a positive integer")
			return
		}
		req.LastMinutes = minutes
	}
	if v := r.URL.Query().Get("start"); v != "" {
		start, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "start must be RFC3339")
			return
		}
		req.Start = &start
	}
	if v := r.URL.Query().Get("end"); v != "" {
		end, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "end must be RFC3339")
			return
		}
		req.End = &end
	}

	events, err := h.service.QueryEvents(r.Context(), req)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to query events", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to query events")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, events)
}

// Alerts handles GET /alerts.
func (h *Handler) Alerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	alerts, err := h.service.ListAlerts(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list alerts", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to list alerts")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, alerts)
}

// GetAlert handles GET /alerts/{id}.
func (h *Handler) GetAlert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/alerts/")
	if id == "" {
		httputil.WriteError(w, http.StatusBadRequest, "alert id required")
		return
	}

	alert, err := h.service.GetAlert(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrAlertNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "alert not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to get alert", "alert_id", id, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to get alert")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, alert)
}

// UpdateAlertStatus handles PATCH /alerts/{id}/status.
func (h *Handler) UpdateAlertStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/alerts/")
	id := strings.TrimSuffix(path, "/status")
	if id == "" || id == path {
		httputil.WriteError(w, http.StatusBadRequest, "alert id required")
		return
	}

	var req models.UpdateAlertStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	alert, err := h.service.UpdateAlertStatus(r.Context(), id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			httputil.WriteError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, repository.ErrAlertNotFound):
			httputil.WriteError(w, http.StatusNotFound, "alert not found")
		default:
			h.logger.ErrorContext(r.Context(), "failed to update alert status", "alert_id", id, "error", err)
			httputil.WriteError(w, http.StatusInternalServerError, "failed to update alert status")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, alert)
}

// Incidents handles GET /incidents.
func (h *Handler) Incidents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	incidents, err := h.service.ListIncidents(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list incidents", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to list incidents")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, incidents)
}
