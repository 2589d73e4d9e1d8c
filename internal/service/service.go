// Package service orchestrates the event and alert stores behind the HTTP
// surface.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/minisoc-systems/minisoc/internal/correlation"
	"github.com/minisoc-systems/minisoc/internal/metrics"
	"github.com/minisoc-systems/minisoc/internal/models"
	"github.com/minisoc-systems/minisoc/internal/repository"
)

// ErrValidation marks client errors that should surface as HTTP 400.
var ErrValidation = errors.New("validation failed")

const (
	maxEventResults    = 200
	maxAlertResults    = 100
	defaultLastMinutes = 60

	defaultSeverity   = 1
	defaultConfidence = 0.5
	defaultCategory   = "UNKNOWN"
)

// Service exposes the ingestion, query and incident operations.
type Service struct {
	events repository.EventStore
	alerts repository.AlertRepository

	now func() time.Time
}

// NewService creates a service over the given stores.
func NewService(events repository.EventStore, alerts repository.AlertRepository) *Service {
	return &Service{events: events, alerts: alerts, now: time.Now}
}

// IngestEvent validates, defaults and appends a single event. Events are
// immutable once stored.
func (s *Service) IngestEvent(ctx context.Context, req *models.IngestEventRequest) (*models.SecurityEvent, error) {
	if req.EventType == "" || req.RawLog == "" || req.SourceHost == "" {
		metrics.EventsIngested.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w: missing required fields: event_type, raw_log, source_host", ErrValidation)
	}

	event := &models.SecurityEvent{
		EventType:     req.EventType,
		EventCategory: req.EventCategory,
		RawLog:        req.RawLog,
		SourceHost:    req.SourceHost,
		Severity:      req.Severity,
		Confidence:    req.Confidence,
		Username:      req.Username,
		SourceIP:      req.SourceIP,
		DestPort:      req.DestPort,
		Protocol:      req.Protocol,
		DetectionRule: req.DetectionRule,
		CorrelationID: req.CorrelationID,
		AttackPhase:   req.AttackPhase,
		Metadata:      req.Metadata,
	}
	if event.EventCategory == "" {
		event.EventCategory = defaultCategory
	}
	if event.Severity == 0 {
		event.Severity = defaultSeverity
	}
	if event.Confidence == 0 {
		event.Confidence = defaultConfidence
	}
	if req.Timestamp != nil {
		event.Timestamp = *req.Timestamp
	} else {
		event.Timestamp = s.now().UTC()
	}

	id, err := s.events.Append(ctx, event)
	if err != nil {
		metrics.EventsIngested.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to store event: %w", err)
	}
	event.ID = id

	metrics.EventsIngested.WithLabelValues("ok").Inc()
	return event, nil
}

// QueryEvents returns events matching the filters, newest first, capped at
// 200. Either an absolute start/end pair or a relative lastMinutes window
// bounds the query; lastMinutes defaults to 60.
func (s *Service) QueryEvents(ctx context.Context, req *models.EventQueryRequest) ([]models.SecurityEvent, error) {
	q := repository.EventQuery{
		EventType: req.EventType,
		SourceIP:  req.SourceIP,
		Limit:     maxEventResults,
	}

	if req.Start != nil {
		q.Start = *req.Start
		if req.End != nil {
			q.End = *req.End
		}
	} else {
		minutes := req.LastMinutes
		if minutes <= 0 {
			minutes = defaultLastMinutes
		}
		q.Start = s.now().Add(-time.Duration(minutes) * time.Minute)
	}

	events, err := s.events.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	return events, nil
}

// ListAlerts returns alerts newest first, capped at 100.
func (s *Service) ListAlerts(ctx context.Context) ([]models.Alert, error) {
	alerts, err := s.alerts.List(ctx, maxAlertResults)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, nil
}

// GetAlert fetches a single alert with its related events resolved from the
// event store. Events that have expired from retention are simply absent.
func (s *Service) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	alert, err := s.alerts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if len(alert.RelatedEvents) > 0 {
		events, err := s.events.GetByIDs(ctx, alert.RelatedEvents)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve related events: %w", err)
		}
		alert.Events = events
	}
	return alert, nil
}

// UpdateAlertStatus transitions an alert to the given status. Unknown
// statuses are rejected before the store is touched.
func (s *Service) UpdateAlertStatus(ctx context.Context, id string, status models.AlertStatus) (*models.Alert, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: invalid status %q", ErrValidation, status)
	}
	return s.alerts.UpdateStatus(ctx, id, status)
}

// ListIncidents projects the current alert set into incidents. The
// projection is recomputed on every call and never persisted.
func (s *Service) ListIncidents(ctx context.Context) ([]models.Incident, error) {
	alerts, err := s.alerts.List(ctx, maxAlertResults)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return correlation.Correlate(alerts), nil
}
