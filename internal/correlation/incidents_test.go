package correlation

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minisoc-systems/minisoc/internal/models"
)

func tp(t time.Time) *time.Time { return &t }

func TestCorrelateEmptyInput(t *testing.T) {
	assert.Empty(t, Correlate(nil))
	assert.Empty(t, Correlate([]models.Alert{}))
}

func TestCorrelateGroupsByTypeAndSource(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	alerts := []models.Alert{
		{ID: "a1", AlertType: "SSH_BRUTE_FORCE", SourceIP: "10.0.0.5", Severity: 4, Status: models.StatusOpen, EventCount: 6, CreatedAt: now},
		{ID: "a2", AlertType: "SSH_BRUTE_FORCE", SourceIP: "10.0.0.5", Severity: 4, Status: models.StatusClosed, EventCount: 8, CreatedAt: now.Add(-time.Hour)},
		{ID: "a3", AlertType: "SSH_BRUTE_FORCE", SourceIP: "192.168.1.9", Severity: 4, Status: models.StatusOpen, EventCount: 5, CreatedAt: now},
		{ID: "a4", AlertType: "PORT_SCAN", SourceIP: "10.0.0.5", Severity: 2, Status: models.StatusOpen, EventCount: 40, CreatedAt: now},
	}

	incidents := Correlate(alerts)
	require.Len(t, incidents, 3)

	byKey := make(map[string]models.Incident)
	for _, inc := range incidents {
		byKey[inc.Key] = inc
	}

	ssh := byKey["SSH_BRUTE_FORCE|10.0.0.5"]
	assert.Equal(t, 2, ssh.AlertCount)
	assert.Equal(t, 14, ssh.EventCount)
	assert.Equal(t, "SSH_BRUTE_FORCE", ssh.AlertType)
	assert.Equal(t, "10.0.0.5", ssh.SourceIP)

	assert.Equal(t, 1, byKey["SSH_BRUTE_FORCE|192.168.1.9"].AlertCount)
	assert.Equal(t, 1, byKey["PORT_SCAN|10.0.0.5"].AlertCount)
}

func TestCorrelateSeverityIsMax(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	incidents := Correlate([]models.Alert{
		{ID: "a1", AlertType: "SSH_BRUTE_FORCE", SourceIP: "10.0.0.5", Severity: 2, Status: models.StatusClosed, CreatedAt: now},
		{ID: "a2", AlertType: "SSH_BRUTE_FORCE", SourceIP: "10.0.0.5", Severity: 4, Status: models.StatusOpen, CreatedAt: now},
		{ID: "a3", AlertType: "SSH_BRUTE_FORCE", SourceIP: "10.0.0.5", Severity: 3, Status: models.StatusClosed, CreatedAt: now},
	})
	require.Len(t, incidents, 1)
	assert.Equal(t, 4, incidents[0].Severity)
}

func TestCorrelateStatusIsMostUrgent(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		statuses []models.AlertStatus
		want     models.AlertStatus
	}{
		{"open wins over closed", []models.AlertStatus{models.StatusClosed, models.StatusOpen}, models.StatusOpen},
		{"investigating wins over closed", []models.AlertStatus{models.StatusClosed, models.StatusInvestigating}, models.StatusInvestigating},
		{"open wins over investigating", []models.AlertStatus{models.StatusInvestigating, models.StatusOpen, models.StatusClosed}, models.StatusOpen},
		{"all closed stays closed", []models.AlertStatus{models.StatusClosed, models.StatusClosed}, models.StatusClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := make([]models.Alert, 0, len(tt.statuses))
			for i, status := range tt.statuses {
				alerts = append(alerts, models.Alert{
					ID:        string(rune('a' + i)),
					AlertType: "SSH_BRUTE_FORCE",
					SourceIP:  "10.0.0.5",
					Severity:  1,
					Status:    status,
					CreatedAt: now,
				})
			}

			incidents := Correlate(alerts)
			require.Len(t, incidents, 1)
			assert.Equal(t, tt.want, incidents[0].Status)
		})
	}
}

func TestCorrelateMixedSeverityScenario(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	incidents := Correlate([]models.Alert{
		{ID: "a1", AlertType: "SSH_BRUTE_FORCE", SourceIP: "10.0.0.5", Severity: 4, Status: models.StatusOpen, EventCount: 6, CreatedAt: now},
		{ID: "a2", AlertType: "SSH_BRUTE_FORCE", SourceIP: "10.0.0.5", Severity: 2, Status: models.StatusClosed, EventCount: 5, CreatedAt: now.Add(-2 * time.Hour)},
	})
	require.Len(t, incidents, 1)

	inc := incidents[0]
	assert.Equal(t, 2, inc.AlertCount)
	assert.Equal(t, 4, inc.Severity)
	assert.Equal(t, models.StatusOpen, inc.Status)
	assert.Equal(t, 11, inc.EventCount)
}

func TestCorrelateSeenBounds(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	incidents := Correlate([]models.Alert{
		{
			ID: "a1", AlertType: "SSH_BRUTE_FORCE", SourceIP: "10.0.0.5",
			Severity: 4, Status: models.StatusOpen,
			FirstSeen: tp(now.Add(-5 * time.Hour)), LastSeen: tp(now.Add(-4 * time.Hour)),
			CreatedAt: now,
		},
		{
			ID: "a2", AlertType: "SSH_BRUTE_FORCE", SourceIP: "10.0.0.5",
			Severity: 4, Status: models.StatusClosed,
			FirstSeen: tp(now.Add(-2 * time.Hour)), LastSeen: tp(now.Add(-time.Hour)),
			CreatedAt: now,
		},
	})
	require.Len(t, incidents, 1)

	inc := incidents[0]
	require.NotNil(t, inc.FirstSeen)
	require.NotNil(t, inc.LastSeen)
	assert.Equal(t, now.Add(-5*time.Hour), *inc.FirstSeen)
	assert.Equal(t, now.Add(-time.Hour), *inc.LastSeen)
}

func TestCorrelateSeenFallsBackToCreatedAt(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	incidents := Correlate([]models.Alert{
		{ID: "a1", AlertType: "SSH_BRUTE_FORCE", SourceIP: "10.0.0.5", Severity: 4, Status: models.StatusOpen, CreatedAt: created},
	})
	require.Len(t, incidents, 1)

	inc := incidents[0]
	require.NotNil(t, inc.FirstSeen)
	require.NotNil(t, inc.LastSeen)
	assert.Equal(t, created, *inc.FirstSeen)
	assert.Equal(t, created, *inc.LastSeen)
}

func TestCorrelateUnknownPlaceholders(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	incidents := Correlate([]models.Alert{
		{ID: "a1", Severity: 1, Status: models.StatusOpen, CreatedAt: now},
	})
	require.Len(t, incidents, 1)

	assert.Equal(t, "UNKNOWN|unknown", incidents[0].Key)
	assert.Equal(t, "UNKNOWN", incidents[0].AlertType)
	assert.Equal(t, "unknown", incidents[0].SourceIP)
}

func TestCorrelateMemberAlertsNewestFirst(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	incidents := Correlate([]models.Alert{
		{ID: "old", AlertType: "SSH_BRUTE_FORCE", SourceIP: "10.0.0.5", Severity: 4, Status: models.StatusClosed, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "new", AlertType: "SSH_BRUTE_FORCE", SourceIP: "10.0.0.5", Severity: 4, Status: models.StatusOpen, CreatedAt: now},
		{ID: "mid", AlertType: "SSH_BRUTE_FORCE", SourceIP: "10.0.0.5", Severity: 4, Status: models.StatusClosed, CreatedAt: now.Add(-time.Hour)},
	})
	require.Len(t, incidents, 1)

	ids := make([]string, 0, 3)
	for _, a := range incidents[0].Alerts {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"new", "mid", "old"}, ids)
}

func TestCorrelateIncidentsOrderedByLastSeenDesc(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	incidents := Correlate([]models.Alert{
		{ID: "a1", AlertType: "PORT_SCAN", SourceIP: "1.1.1.1", Severity: 2, Status: models.StatusOpen, LastSeen: tp(now.Add(-3 * time.Hour)), CreatedAt: now.Add(-3 * time.Hour)},
		{ID: "a2", AlertType: "SSH_BRUTE_FORCE", SourceIP: "2.2.2.2", Severity: 4, Status: models.StatusOpen, LastSeen: tp(now), CreatedAt: now},
		{ID: "a3", AlertType: "SSH_BRUTE_FORCE", SourceIP: "3.3.3.3", Severity: 4, Status: models.StatusOpen, LastSeen: tp(now.Add(-time.Hour)), CreatedAt: now.Add(-time.Hour)},
	})
	require.Len(t, incidents, 3)

	assert.Equal(t, "SSH_BRUTE_FORCE|2.2.2.2", incidents[0].Key)
	assert.Equal(t, "SSH_BRUTE_FORCE|3.3.3.3", incidents[1].Key)
	assert.Equal(t, "PORT_SCAN|1.1.1.1", incidents[2].Key)
}

func TestCorrelateDeterministicUnderPermutation(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	alerts := []models.Alert{
		{ID: "a1", AlertType: "SSH_BRUTE_FORCE", SourceIP: "10.0.0.5", Severity: 4, Status: models.StatusOpen, EventCount: 6, LastSeen: tp(now), CreatedAt: now},
		{ID: "a2", AlertType: "SSH_BRUTE_FORCE", SourceIP: "10.0.0.5", Severity: 2, Status: models.StatusClosed, EventCount: 5, LastSeen: tp(now.Add(-time.Hour)), CreatedAt: now.Add(-time.Hour)},
		{ID: "a3", AlertType: "PORT_SCAN", SourceIP: "10.0.0.5", Severity: 2, Status: models.StatusInvestigating, EventCount: 30, LastSeen: tp(now.Add(-30 * time.Minute)), CreatedAt: now},
		{ID: "a4", AlertType: "SSH_BRUTE_FORCE", SourceIP: "192.168.1.9", Severity: 3, Status: models.StatusOpen, EventCount: 7, LastSeen: tp(now.Add(-2 * time.Hour)), CreatedAt: now},
	}

	want := Correlate(alerts)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := make([]models.Alert, len(alerts))
		copy(shuffled, alerts)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		assert.Equal(t, want, Correlate(shuffled))
	}
}
