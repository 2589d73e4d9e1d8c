// Package seeder generates synthetic security events for demos and testing.
package seeder

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/minisoc-systems/minisoc/cli/internal/client"
	"github.com/minisoc-systems/minisoc/cli/pkg/output"
	"github.com/minisoc-systems/minisoc/internal/models"
)

// Config controls what the seeder produces.
type Config struct {
	// BaselineEvents is the number of benign background events.
	BaselineEvents int
	// Attackers is the number of sources that produce a brute-force burst.
	Attackers int
	// BurstSize is the failed-login count per attacker. The default detection
	// rule fires at 5.
	BurstSize int
	// TimeWindow spreads event timestamps over this trailing duration.
	TimeWindow time.Duration
	// Seed fixes the random sequence; zero means time-based.
	Seed int64
}

// DefaultConfig returns a seed profile that trips the brute-force rule.
func DefaultConfig() Config {
	return Config{
		BaselineEvents: 50,
		Attackers:      2,
		BurstSize:      6,
		TimeWindow:     2 * time.Hour,
	}
}

// Seeder posts generated events to a running minisoc instance.
type Seeder struct {
	client *client.Client
	cfg    Config
	faker  *gofakeit.Faker
	rng    *rand.Rand
}

// New creates a seeder over an API client.
func New(c *client.Client, cfg Config) *Seeder {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Seeder{
		client: c,
		cfg:    cfg,
		faker:  gofakeit.New(seed),
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Run generates and ingests all configured events, oldest first.
func (s *Seeder) Run() error {
	now := time.Now().UTC()

	events := s.baselineEvents(now)
	for i := 0; i < s.cfg.Attackers; i++ {
		events = append(events, s.bruteForceBurst(now)...)
	}

	// Oldest first so ingestion order matches event order.
	sortByTimestamp(events)

	ingested := 0
	for _, ev := range events {
		if _, err := s.client.IngestEvent(ev); err != nil {
			return fmt.Errorf("ingested %d of %d events: %w", ingested, len(events), err)
		}
		ingested++
	}

	output.Success("Ingested %d events (%d baseline, %d attackers x %d failed logins)",
		ingested, s.cfg.BaselineEvents, s.cfg.Attackers, s.cfg.BurstSize)
	return nil
}

var baselineEventTypes = []string{
	"SUCCESSFUL_LOGIN",
	"PROCESS_START",
	"DNS_QUERY",
	"HTTP_REQUEST",
	"FILE_ACCESS",
}

// baselineEvents produces benign background noise spread across the window.
func (s *Seeder) baselineEvents(now time.Time) []*models.IngestEventRequest {
	events := make([]*models.IngestEventRequest, 0, s.cfg.BaselineEvents)
	for i := 0; i < s.cfg.BaselineEvents; i++ {
		ts := s.jitteredTime(now, i, s.cfg.BaselineEvents)
		eventType := baselineEventTypes[s.rng.Intn(len(baselineEventTypes))]
		host := s.faker.DomainName()
		user := s.faker.Username()

		events = append(events, &models.IngestEventRequest{
			EventType:     eventType,
			EventCategory: "BASELINE",
			Severity:      1,
			Confidence:    0.9,
			Timestamp:     &ts,
			RawLog:        fmt.Sprintf("%s %s user=%s", ts.Format(time.RFC3339), eventType, user),
			SourceHost:    host,
			Username:      user,
			SourceIP:      s.faker.IPv4Address(),
			Protocol:      "tcp",
		})
	}
	return events
}

// bruteForceBurst produces enough failed logins from one source to cross the
// detection threshold.
func (s *Seeder) bruteForceBurst(now time.Time) []*models.IngestEventRequest {
	attackerIP := s.faker.IPv4Address()
	targetHost := s.faker.DomainName()

	events := make([]*models.IngestEventRequest, 0, s.cfg.BurstSize)
	for i := 0; i < s.cfg.BurstSize; i++ {
		ts := s.jitteredTime(now, i, s.cfg.BurstSize)
		user := s.faker.Username()

		events = append(events, &models.IngestEventRequest{
			EventType:     "FAILED_LOGIN",
			EventCategory: "AUTHENTICATION",
			Severity:      3,
			Confidence:    0.95,
			Timestamp:     &ts,
			RawLog: fmt.Sprintf("%s sshd[%d]: Failed password for %s from %s port %d ssh2",
				ts.Format(time.RFC3339), 1000+s.rng.Intn(9000), user, attackerIP, 40000+s.rng.Intn(20000)),
			SourceHost: targetHost,
			Username:   user,
			SourceIP:   attackerIP,
			DestPort:   22,
			Protocol:   "tcp",
		})
	}
	return events
}

// jitteredTime places event i of total inside the trailing window with ±40%
// jitter around an even spacing.
func (s *Seeder) jitteredTime(now time.Time, index, total int) time.Time {
	baseInterval := float64(s.cfg.TimeWindow) / float64(total)
	baseOffset := time.Duration(float64(index) * baseInterval)

	jitterRange := baseInterval * 0.4
	jitter := time.Duration((s.rng.Float64()*2.0 - 1.0) * jitterRange)

	totalOffset := baseOffset + jitter
	if totalOffset < 0 {
		totalOffset = 0
	}
	if totalOffset > s.cfg.TimeWindow {
		totalOffset = s.cfg.TimeWindow
	}

	return now.Add(-(s.cfg.TimeWindow - totalOffset))
}

func sortByTimestamp(events []*models.IngestEventRequest) {
	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp.Before(*events[j].Timestamp)
	})
}
