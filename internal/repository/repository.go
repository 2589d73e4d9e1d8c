package repository

import (
	"context"
	"errors"
	"time"

	"github.com/minisoc-systems/minisoc/internal/models"
)

var (
	ErrAlertNotFound = errors.New("alert not found")

	// ErrDuplicateAlert is returned by Create when an OPEN alert already
	// exists for the same (alert_type, source_ip) pair. Callers treat it as
	// a no-op, not a failure.
	ErrDuplicateAlert = errors.New("open alert already exists for this source")
)

// EventQuery bounds a search against the event store. Start is inclusive.
// A zero End leaves the window open above; events with future timestamps are
// returned as-is rather than clamped.
type EventQuery struct {
	EventType    string
	SourceIP     string
	Start        time.Time
	End          time.Time
	WithSourceIP bool
	Limit        int
	Ascending    bool
}

// EventStore is the boundary to the durable append-only event collection.
type EventStore interface {
	Append(ctx context.Context, event *models.SecurityEvent) (string, error)
	Search(ctx context.Context, q EventQuery) ([]models.SecurityEvent, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.SecurityEvent, error)
}

// AlertRepository is the boundary to the mutable alert collection.
type AlertRepository interface {
	// Create inserts the alert, returning ErrDuplicateAlert when an OPEN
	// alert for the same (alert_type, source_ip) already exists. The
	// uniqueness check and the insert are atomic at the store.
	Create(ctx context.Context, alert *models.Alert) error
	FindOpen(ctx context.Context, alertType, sourceIP string) (*models.Alert, error)
	List(ctx context.Context, limit int) ([]models.Alert, error)
	GetByID(ctx context.Context, id string) (*models.Alert, error)
	UpdateStatus(ctx context.Context, id string, status models.AlertStatus) (*models.Alert, error)
	Close() error
}
