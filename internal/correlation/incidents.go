// Package correlation derives incident views from the current alert set.
//
// Correlate is a pure projection: it is recomputed on every read, never
// cached, and its output depends only on the input alerts.
package correlation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/minisoc-systems/minisoc/internal/models"
)

// Placeholders used when an alert is missing part of the grouping key, so
// grouping is total over any input.
const (
	unknownAlertType = "UNKNOWN"
	unknownSourceIP  = "unknown"
)

// statusUrgency orders statuses from least to most urgent.
var statusUrgency = map[models.AlertStatus]int{
	models.StatusClosed:        0,
	models.StatusInvestigating: 1,
	models.StatusOpen:          2,
}

// Correlate groups alerts into incidents keyed by (alert_type, source_ip)
// and computes the rollup fields: severity is the max over members, status is
// the most urgent member status, first/last seen are the min/max over member
// windows (falling back to creation time), event counts are summed.
//
// Member alerts are ordered by creation time descending; incidents are
// ordered by last seen descending with unresolvable last-seen sorting last.
// The incident key breaks ties so output never depends on map iteration
// order.
func Correlate(alerts []models.Alert) []models.Incident {
	groups := make(map[string][]models.Alert)
	keys := make([]string, 0)

	for _, alert := range alerts {
		alertType := alert.AlertType
		if alertType == "" {
			alertType = unknownAlertType
		}
		sourceIP := alert.SourceIP
		if sourceIP == "" {
			sourceIP = unknownSourceIP
		}
		key := fmt.Sprintf("%s|%s", alertType, sourceIP)
		if _, seen := groups[key]; !seen {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], alert)
	}
	sort.Strings(keys)

	incidents := make([]models.Incident, 0, len(keys))
	for _, key := range keys {
		incidents = append(incidents, buildIncident(key, groups[key]))
	}

	sort.SliceStable(incidents, func(i, j int) bool {
		li, lj := incidents[i].LastSeen, incidents[j].LastSeen
		switch {
		case li == nil && lj == nil:
			return incidents[i].Key < incidents[j].Key
		case li == nil:
			return false
		case lj == nil:
			return true
		case !li.Equal(*lj):
			return li.After(*lj)
		default:
			return incidents[i].Key < incidents[j].Key
		}
	})

	return incidents
}

func buildIncident(key string, members []models.Alert) models.Incident {
	parts := strings.SplitN(key, "|", 2)
	alertType, sourceIP := parts[0], unknownSourceIP
	if len(parts) == 2 {
		sourceIP = parts[1]
	}

	incident := models.Incident{
		Key:        key,
		AlertType:  alertType,
		SourceIP:   sourceIP,
		Severity:   1,
		Status:     models.StatusClosed,
		AlertCount: len(members),
	}

	for _, alert := range members {
		if alert.Severity > incident.Severity {
			incident.Severity = alert.Severity
		}
		if statusUrgency[alert.Status] > statusUrgency[incident.Status] {
			incident.Status = alert.Status
		}
		incident.EventCount += alert.EventCount

		if first := seenOrCreated(alert.FirstSeen, alert.CreatedAt); first != nil {
			if incident.FirstSeen == nil || first.Before(*incident.FirstSeen) {
				incident.FirstSeen = first
			}
		}
		if last := seenOrCreated(alert.LastSeen, alert.CreatedAt); last != nil {
			if incident.LastSeen == nil || last.After(*incident.LastSeen) {
				incident.LastSeen = last
			}
		}
	}

	sorted := make([]models.Alert, len(members))
	copy(sorted, members)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})
	incident.Alerts = sorted

	return incident
}

// seenOrCreated prefers the alert's own window bound, falling back to its
// creation time; returns nil only when neither is usable.
func seenOrCreated(seen *time.Time, created time.Time) *time.Time {
	if seen != nil && !seen.IsZero() {
		t := *seen
		return &t
	}
	if !created.IsZero() {
		t := created
		return &t
	}
	return nil
}
