package models

import "time"

// AlertStatus is the lifecycle state of an alert.
type AlertStatus string

const (
	StatusOpen          AlertStatus = "OPEN"
	StatusInvestigating AlertStatus = "INVESTIGATING"
	StatusClosed        AlertStatus = "CLOSED"
)

// IsValid reports whether s is one of the known alert statuses.
func (s AlertStatus) IsValid() bool {
	switch s {
	case StatusOpen, StatusInvestigating, StatusClosed:
		return true
	}
	return false
}

// SecurityEvent is a single immutable event reported by a monitored host.
// Events are written once at ingestion and expire from the event store after
// the retention window; nothing in this service mutates them.
type SecurityEvent struct {
	ID            string                 `json:"id"`
	EventType     string                 `json:"event_type"`
	EventCategory string                 `json:"event_category"`
	Severity      int                    `json:"severity"`
	Confidence    float64                `json:"confidence"`
	Timestamp     time.Time              `json:"timestamp"`
	RawLog        string                 `json:"raw_log"`
	SourceHost    string                 `json:"source_host"`
	Username      string                 `json:"username,omitempty"`
	SourceIP      string                 `json:"source_ip,omitempty"`
	DestPort      int                    `json:"dest_port,omitempty"`
	Protocol      string                 `json:"protocol,omitempty"`
	DetectionRule string                 `json:"detection_rule,omitempty"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	AttackPhase   string                 `json:"attack_phase,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// Alert is a materialized detection finding. At most one alert per
// (alert_type, source_ip) pair may be OPEN at any time; the alert store
// enforces that invariant on insert.
type Alert struct {
	ID            string          `json:"id"`
	AlertType     string          `json:"alert_type"`
	Severity      int             `json:"severity"`
	SourceIP      string          `json:"source_ip"`
	EventCount    int             `json:"event_count"`
	FirstSeen     *time.Time      `json:"first_seen,omitempty"`
	LastSeen      *time.Time      `json:"last_seen,omitempty"`
	RelatedEvents []string        `json:"related_events"`
	Status        AlertStatus     `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Events        []SecurityEvent `json:"events,omitempty"`
}

// Incident is a read-time grouping of alerts sharing (alert_type, source_ip).
// All fields are computed from the member alerts on every read; incidents are
// never persisted and have no identity beyond their grouping key.
type Incident struct {
	Key        string      `json:"incident_key"`
	AlertType  string      `json:"alert_type"`
	SourceIP   string      `json:"source_ip"`
	Severity   int         `json:"severity"`
	Status     AlertStatus `json:"status"`
	AlertCount int         `json:"alert_count"`
	EventCount int         `json:"event_count"`
	FirstSeen  *time.Time  `json:"first_seen,omitempty"`
	LastSeen   *time.Time  `json:"last_seen,omitempty"`
	Alerts     []Alert     `json:"alerts"`
}
