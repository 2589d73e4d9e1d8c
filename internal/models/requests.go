package models

import "time"

// IngestEventRequest is the payload accepted by POST /ingest.
// event_type, raw_log and source_host are required; everything else is
// defaulted at ingestion.
type IngestEventRequest struct {
	EventType     string                 `json:"event_type"`
	EventCategory string                 `json:"event_category,omitempty"`
	RawLog        string                 `json:"raw_log"`
	SourceHost    string                 `json:"source_host"`
	Timestamp     *time.Time             `json:"timestamp,omitempty"`
	Severity      int                    `json:"severity,omitempty"`
	Confidence    float64                `json:"confidence,omitempty"`
	Username      string                 `json:"username,omitempty"`
	SourceIP      string                 `json:"source_ip,omitempty"`
	DestPort      int                    `json:"dest_port,omitempty"`
	Protocol      string                 `json:"protocol,omitempty"`
	DetectionRule string                 `json:"detection_rule,omitempty"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	AttackPhase   string                 `json:"attack_phase,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// IngestEventResponse acknowledges a stored event.
type IngestEventResponse struct {
	Status  string `json:"status"`
	EventID string `json:"event_id"`
}

// EventQueryRequest captures the filters accepted by GET /events.
// Either LastMinutes or an absolute Start/End pair bounds the query.
type EventQueryRequest struct {
	EventType   string
	SourceIP    string
	LastMinutes int
	Start       *time.Time
	End         *time.Time
}

// UpdateAlertStatusRequest is the payload for PATCH /alerts/{id}/status.
type UpdateAlertStatusRequest struct {
	Status AlertStatus `json:"status"`
}
