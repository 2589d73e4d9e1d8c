package nats

import (
	"time"

	"github.com/minisoc-systems/minisoc/internal/models"
)

// Subjects for detection notifications.
const (
	SubjectAlertsCreated = "minisoc.alerts.created"
)

// AlertCreatedEvent is published when the detector materializes a new alert.
type AlertCreatedEvent struct {
	AlertID    string     `json:"alert_id"`
	AlertType  string     `json:"alert_type"`
	Severity   int        `json:"severity"`
	SourceIP   string     `json:"source_ip"`
	EventCount int        `json:"event_count"`
	FirstSeen  *time.Time `json:"first_seen,omitempty"`
	LastSeen   *time.Time `json:"last_seen,omitempty"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
}

func newAlertCreatedEvent(alert *models.Alert) *AlertCreatedEvent {
	return &AlertCreatedEvent{
		AlertID:    alert.ID,
		AlertType:  alert.AlertType,
		Severity:   alert.Severity,
		SourceIP:   alert.SourceIP,
		EventCount: alert.EventCount,
		FirstSeen:  alert.FirstSeen,
		LastSeen:   alert.LastSeen,
		Status:     string(alert.Status),
		CreatedAt:  alert.CreatedAt,
	}
}
