// Package detection implements the windowed brute-force detector and the
// scheduler that drives it.
package detection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/minisoc-systems/minisoc/internal/logging"
	"github.com/minisoc-systems/minisoc/internal/metrics"
	"github.com/minisoc-systems/minisoc/internal/models"
	"github.com/minisoc-systems/minisoc/internal/repository"
)

// maxEventsPerCycle caps a single detection query. Well above anything a
// 48h window produces in practice; candidates past the cap wait for the
// next cycle.
const maxEventsPerCycle = 10000

// Notifier publishes alert lifecycle notifications. Delivery is best effort
// and never fails a detection cycle.
type Notifier interface {
	AlertCreated(ctx context.Context, alert *models.Alert) error
}

// Detector evaluates count-threshold rules against a trailing event window
// and materializes alerts through the alert store's conditional insert.
type Detector struct {
	events   repository.EventStore
	alerts   repository.AlertRepository
	notifier Notifier
	rules    []Rule
	logger   *logging.Logger

	now func() time.Time
}

// NewDetector creates a detector for the given rules. notifier may be nil.
func NewDetector(events repository.EventStore, alerts repository.AlertRepository, notifier Notifier, rules []Rule, logger *logging.Logger) *Detector {
	if logger == nil {
		logger = logging.Default()
	}
	return &Detector{
		events:   events,
		alerts:   alerts,
		notifier: notifier,
		rules:    rules,
		logger:   logger,
		now:      time.Now,
	}
}

// candidate is one source that crossed a rule's threshold within the window.
type candidate struct {
	sourceIP  string
	count     int
	firstSeen time.Time
	lastSeen  time.Time
	eventIDs  []string
}

// RunCycle evaluates every rule once. A query failure aborts the cycle and
// is returned to the scheduler; per-candidate creation failures are logged
// and do not stop the remaining candidates.
func (d *Detector) RunCycle(ctx context.Context) error {
	started := time.Now()
	defer func() {
		metrics.DetectionCycleDuration.Observe(time.Since(started).Seconds())
	}()

	for _, rule := range d.rules {
		if err := d.evaluateRule(ctx, rule); err != nil {
			metrics.DetectionCycles.WithLabelValues("error").Inc()
			return fmt.Errorf("rule %s: %w", rule.Name, err)
		}
	}

	metrics.DetectionCycles.WithLabelValues("ok").Inc()
	return nil
}

func (d *Detector) evaluateRule(ctx context.Context, rule Rule) error {
	now := d.now()
	windowStart := now.Add(-rule.Window)

	// Inclusive lower bound, no upper bound: events stamped in the future
	// still count. That mirrors the store's retention-driven view of "now"
	// rather than second-guessing upstream timestamps.
	events, err := d.events.Search(ctx, repository.EventQuery{
		EventType:    rule.EventType,
		Start:        windowStart,
		WithSourceIP: true,
		Limit:        maxEventsPerCycle,
		Ascending:    true,
	})
	if err != nil {
		return fmt.Errorf("event query failed: %w", err)
	}

	candidates := d.aggregate(rule, events)
	if len(candidates) == 0 {
		d.logger.DebugContext(ctx, "no sources over threshold",
			"rule", rule.Name, "events", len(events))
		return nil
	}

	d.logger.InfoContext(ctx, "sources over threshold",
		"rule", rule.Name, "candidates", len(candidates), "events", len(events))

	for _, c := range candidates {
		d.materialize(ctx, rule, c)
	}
	return nil
}

// aggregate groups events by source IP and keeps the groups at or over the
// rule threshold, in first-appearance order. Events without a source
// identity are excluded entirely rather than pooled into a synthetic bucket.
func (d *Detector) aggregate(rule Rule, events []models.SecurityEvent) []candidate {
	groups := make(map[string]*candidate)
	order := make([]string, 0)

	for _, ev := range events {
		if ev.SourceIP == "" {
			continue
		}
		c, ok := groups[ev.SourceIP]
		if !ok {
			c = &candidate{sourceIP: ev.SourceIP, firstSeen: ev.Timestamp, lastSeen: ev.Timestamp}
			groups[ev.SourceIP] = c
			order = append(order, ev.SourceIP)
		}
		c.count++
		if ev.Timestamp.Before(c.firstSeen) {
			c.firstSeen = ev.Timestamp
		}
		if ev.Timestamp.After(c.lastSeen) {
			c.lastSeen = ev.Timestamp
		}
		c.eventIDs = append(c.eventIDs, ev.ID)
	}

	candidates := make([]candidate, 0, len(order))
	for _, ip := range order {
		if c := groups[ip]; c.count >= rule.Threshold {
			candidates = append(candidates, *c)
		}
	}
	return candidates
}

// materialize creates an alert for a candidate unless an OPEN alert for the
// same (alert_type, source_ip) already exists. The FindOpen pre-check is an
// optimization; the store's conditional insert is the source of truth.
func (d *Detector) materialize(ctx context.Context, rule Rule, c candidate) {
	if _, err := d.alerts.FindOpen(ctx, rule.AlertType, c.sourceIP); err == nil {
		metrics.DedupSkips.WithLabelValues(rule.AlertType).Inc()
		d.logger.DebugContext(ctx, "open alert exists, skipping",
			"rule", rule.Name, "source_ip", c.sourceIP)
		return
	} else if !errors.Is(err, repository.ErrAlertNotFound) {
		metrics.CandidateErrors.Inc()
		d.logger.ErrorContext(ctx, "dedup lookup failed",
			"rule", rule.Name, "source_ip", c.sourceIP, "error", err)
		return
	}

	id, err := uuid.NewV7()
	if err != nil {
		metrics.CandidateErrors.Inc()
		d.logger.ErrorContext(ctx, "failed to generate alert id",
			"rule", rule.Name, "source_ip", c.sourceIP, "error", err)
		return
	}

	firstSeen, lastSeen := c.firstSeen, c.lastSeen
	alert := &models.Alert{
		ID:            id.String(),
		AlertType:     rule.AlertType,
		Severity:      rule.Severity,
		SourceIP:      c.sourceIP,
		EventCount:    c.count,
		FirstSeen:     &firstSeen,
		LastSeen:      &lastSeen,
		RelatedEvents: c.eventIDs,
		Status:        models.StatusOpen,
	}

	if err := d.alerts.Create(ctx, alert); err != nil {
		if errors.Is(err, repository.ErrDuplicateAlert) {
			// Lost the race to a concurrent cycle; the invariant held.
			metrics.DedupSkips.WithLabelValues(rule.AlertType).Inc()
			d.logger.DebugContext(ctx, "conditional insert found open alert",
				"rule", rule.Name, "source_ip", c.sourceIP)
			return
		}
		metrics.CandidateErrors.Inc()
		d.logger.ErrorContext(ctx, "failed to create alert",
			"rule", rule.Name, "source_ip", c.sourceIP, "error", err)
		return
	}

	metrics.AlertsCreated.WithLabelValues(rule.AlertType).Inc()
	d.logger.InfoContext(ctx, "alert created",
		"rule", rule.Name, "alert_id", alert.ID,
		"source_ip", c.sourceIP, "event_count", c.count)

	if d.notifier != nil {
		if err := d.notifier.AlertCreated(ctx, alert); err != nil {
			d.logger.WarnContext(ctx, "failed to publish alert notification",
				"alert_id", alert.ID, "error", err)
		}
	}
}
