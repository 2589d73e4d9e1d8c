package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/minisoc-systems/minisoc/internal/models"
)

// InMemoryEventStore keeps events in process memory. It backs dev mode when
// no OpenSearch URL is configured and doubles as a test fixture.
type InMemoryEventStore struct {
	mu     sync.RWMutex
	events []models.SecurityEvent
	byID   map[string]int
}

func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{byID: make(map[string]int)}
}

func (s *InMemoryEventStore) Append(ctx context.Context, event *models.SecurityEvent) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	s.byID[event.ID] = len(s.events)
	s.events = append(s.events, *event)
	return event.ID, nil
}

func (s *InMemoryEventStore) Search(ctx context.Context, q EventQuery) ([]models.SecurityEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]models.SecurityEvent, 0)
	for _, ev := range s.events {
		if q.EventType != "" && ev.EventType != q.EventType {
			continue
		}
		if q.SourceIP != "" && ev.SourceIP != q.SourceIP {
			continue
		}
		if q.WithSourceIP && ev.SourceIP == "" {
			continue
		}
		if ev.Timestamp.Before(q.Start) {
			continue
		}
		if !q.End.IsZero() && ev.Timestamp.After(q.End) {
			continue
		}
		matched = append(matched, ev)
	}

	if q.Ascending {
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].Timestamp.Before(matched[j].Timestamp) })
	} else {
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].Timestamp.After(matched[j].Timestamp) })
	}

	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

func (s *InMemoryEventStore) GetByIDs(ctx context.Context, ids []string) ([]models.SecurityEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]models.SecurityEvent, 0, len(ids))
	for _, id := range ids {
		if idx, ok := s.byID[id]; ok {
			events = append(events, s.events[idx])
		}
	}
	return events, nil
}

// InMemoryAlertRepository is a mutex-guarded alert store. Create enforces the
// single-open-alert invariant under the same lock as the lookup, so it gives
// the same atomicity guarantee as the Postgres partial unique index.
type InMemoryAlertRepository struct {
	mu     sync.RWMutex
	alerts map[string]*models.Alert
}

func NewInMemoryAlertRepository() *InMemoryAlertRepository {
	return &InMemoryAlertRepository{alerts: make(map[string]*models.Alert)}
}

func (r *InMemoryAlertRepository) Create(ctx context.Context, alert *models.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.alerts {
		if existing.AlertType == alert.AlertType &&
			existing.SourceIP == alert.SourceIP &&
			existing.Status == models.StatusOpen {
			return ErrDuplicateAlert
		}
	}

	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = now
	}
	alert.UpdatedAt = alert.CreatedAt
	if alert.Status == "" {
		alert.Status = models.StatusOpen
	}

	stored := *alert
	r.alerts[alert.ID] = &stored
	return nil
}

func (r *InMemoryAlertRepository) FindOpen(ctx context.Context, alertType, sourceIP string) (*models.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.alerts {
		if a.AlertType == alertType && a.SourceIP == sourceIP && a.Status == models.StatusOpen {
			found := *a
			return &found, nil
		}
	}
	return nil, ErrAlertNotFound
}

func (r *InMemoryAlertRepository) List(ctx context.Context, limit int) ([]models.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	alerts := make([]models.Alert, 0, len(r.alerts))
	for _, a := range r.alerts {
		alerts = append(alerts, *a)
	}
	sort.Slice(alerts, func(i, j int) bool {
		if !alerts[i].CreatedAt.Equal(alerts[j].CreatedAt) {
			return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
		}
		return alerts[i].ID < alerts[j].ID
	})

	if limit > 0 && len(alerts) > limit {
		alerts = alerts[:limit]
	}
	return alerts, nil
}

func (r *InMemoryAlertRepository) GetByID(ctx context.Context, id string) (*models.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.alerts[id]
	if !ok {
		return nil, ErrAlertNotFound
	}
	found := *a
	return &found, nil
}

func (r *InMemoryAlertRepository) UpdateStatus(ctx context.Context, id string, status models.AlertStatus) (*models.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.alerts[id]
	if !ok {
		return nil, ErrAlertNotFound
	}
	a.Status = status
	a.UpdatedAt = time.Now().UTC()
	updated := *a
	return &updated, nil
}

func (r *InMemoryAlertRepository) Close() error {
	return nil
}
