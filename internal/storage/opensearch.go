// Package storage provides the OpenSearch-backed event store.
package storage

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/minisoc-systems/minisoc/internal/models"
	"github.com/minisoc-systems/minisoc/internal/repository"
)

// Config holds OpenSearch connection and index settings.
type Config struct {
	URL           string
	Username      string
	Password      string
	Insecure      bool
	IndexPrefix   string
	RetentionDays int
}

// DefaultConfig returns sensible defaults for a local OpenSearch node.
func DefaultConfig() Config {
	return Config{
		URL:           "https://localhost:9200",
		Username:      "admin",
		Password:      "",
		Insecure:      true,
		IndexPrefix:   "minisoc-events",
		RetentionDays: 7,
	}
}

// EventStore implements repository.EventStore on OpenSearch. Events are
// written to daily indices <prefix>-YYYY.MM.DD and searched through the
// <prefix>-* wildcard. Retention is owned by an ISM policy installed at
// startup, not by the detector.
type EventStore struct {
	client *opensearch.Client
	config Config
}

// NewEventStore creates the client and verifies connectivity.
func NewEventStore(cfg Config) (*EventStore, error) {
	httpClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.Insecure,
			},
		},
	}

	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: httpClient.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	info, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to ping opensearch: %w", err)
	}
	defer info.Body.Close()

	if info.IsError() {
		return nil, fmt.Errorf("opensearch returned error: %s", info.Status())
	}

	return &EventStore{client: client, config: cfg}, nil
}

// Initialize installs the index template and the retention ISM policy.
func (s *EventStore) Initialize(ctx context.Context) error {
	if err := s.createIndexTemplate(); err != nil {
		return fmt.Errorf("failed to create index template: %w", err)
	}
	if err := s.createRetentionPolicy(ctx); err != nil {
		return fmt.Errorf("failed to create retention policy: %w", err)
	}
	return nil
}

func (s *EventStore) writeIndex() string {
	return fmt.Sprintf("%s-%s", s.config.IndexPrefix, time.Now().UTC().Format("2006.01.02"))
}

func (s *EventStore) searchPattern() string {
	return s.config.IndexPrefix + "-*"
}

// Append indexes a single event, assigning an ID when the caller did not.
func (s *EventStore) Append(ctx context.Context, event *models.SecurityEvent) (string, error) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	body, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}

	req := opensearchapi.IndexRequest{
		Index:      s.writeIndex(),
		DocumentID: event.ID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return "", fmt.Errorf("failed to index event: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return "", fmt.Errorf("indexing failed with status %s: %s", res.Status(), string(msg))
	}

	return event.ID, nil
}

// Search executes a filtered, time-bounded query. Start is inclusive; when
// End is zero no upper bound is applied, so future-dated events match.
func (s *EventStore) Search(ctx context.Context, q repository.EventQuery) ([]models.SecurityEvent, error) {
	filters := []map[string]interface{}{}

	if q.EventType != "" {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{"event_type.keyword": q.EventType},
		})
	}
	if q.SourceIP != "" {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{"source_ip.keyword": q.SourceIP},
		})
	}
	if q.WithSourceIP {
		filters = append(filters, map[string]interface{}{
			"exists": map[string]interface{}{"field": "source_ip"},
		})
	}

	rangeBounds := map[string]interface{}{"gte": q.Start.UTC().Format(time.RFC3339Nano)}
	if !q.End.IsZero() {
		rangeBounds["lte"] = q.End.UTC().Format(time.RFC3339Nano)
	}
	filters = append(filters, map[string]interface{}{
		"range": map[string]interface{}{"timestamp": rangeBounds},
	})

	order := "desc"
	if q.Ascending {
		order = "asc"
	}
	size := q.Limit
	if size <= 0 {
		size = 200
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"filter": filters},
		},
		"sort": []map[string]interface{}{
			{"timestamp": map[string]string{"order": order}},
		},
		"size": size,
	}

	return s.executeSearch(ctx, query)
}

// GetByIDs resolves events by document ID, preserving only events that still
// exist (expired events are silently dropped).
func (s *EventStore) GetByIDs(ctx context.Context, ids []string) ([]models.SecurityEvent, error) {
	if len(ids) == 0 {
		return []models.SecurityEvent{}, nil
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"ids": map[string]interface{}{"values": ids},
		},
		"sort": []map[string]interface{}{
			{"timestamp": map[string]string{"order": "asc"}},
		},
		"size": len(ids),
	}

	return s.executeSearch(ctx, query)
}

func (s *EventStore) executeSearch(ctx context.Context, query map[string]interface{}) ([]models.SecurityEvent, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	req := opensearchapi.SearchRequest{
		Index: []string{s.searchPattern()},
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("search failed with status %s: %s", res.Status(), string(msg))
	}

	var searchResp struct {
		Hits struct {
			Hits []struct {
				ID     string               `json:"_id"`
				Source models.SecurityEvent `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	events := make([]models.SecurityEvent, 0, len(searchResp.Hits.Hits))
	for _, hit := range searchResp.Hits.Hits {
		ev := hit.Source
		if ev.ID == "" {
			ev.ID = hit.ID
		}
		events = append(events, ev)
	}
	return events, nil
}

func (s *EventStore) createIndexTemplate() error {
	template := map[string]interface{}{
		"index_patterns": []string{s.searchPattern()},
		"template": map[string]interface{}{
			"settings": map[string]interface{}{
				"number_of_shards":   1,
				"number_of_replicas": 0,
			},
			"mappings": map[string]interface{}{
				"dynamic": true,
				"dynamic_templates": []map[string]interface{}{
					{
						"strings_as_keywords": map[string]interface{}{
							"match_mapping_type": "string",
							"mapping": map[string]interface{}{
								"type": "text",
								"fields": map[string]interface{}{
									"keyword": map[string]interface{}{
										"type":         "keyword",
										"ignore_above": 256,
									},
								},
							},
						},
					},
				},
				"properties": map[string]interface{}{
					"timestamp":  map[string]interface{}{"type": "date"},
					"severity":   map[string]interface{}{"type": "integer"},
					"confidence": map[string]interface{}{"type": "float"},
					"dest_port":  map[string]interface{}{"type": "integer"},
				},
			},
		},
		"priority": 100,
	}

	body, err := json.Marshal(template)
	if err != nil {
		return err
	}

	res, err := s.client.Indices.PutIndexTemplate(
		s.config.IndexPrefix+"-template",
		bytes.NewReader(body),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return fmt.Errorf("status %s: %s", res.Status(), string(msg))
	}
	return nil
}

func (s *EventStore) createRetentionPolicy(ctx context.Context) error {
	policy := map[string]interface{}{
		"policy": map[string]interface{}{
			"description":   "MiniSOC event retention",
			"default_state": "hot",
			"ism_template": []map[string]interface{}{
				{"index_patterns": []string{s.searchPattern()}, "priority": 100},
			},
			"states": []map[string]interface{}{
				{
					"name":    "hot",
					"actions": []map[string]interface{}{},
					"transitions": []map[string]interface{}{
						{
							"state_name": "delete",
							"conditions": map[string]interface{}{
								"min_index_age": fmt.Sprintf("%dd", s.config.RetentionDays),
							},
						},
					},
				},
				{
					"name": "delete",
					"actions": []map[string]interface{}{
						{"delete": map[string]interface{}{}},
					},
				},
			},
		},
	}

	body, err := json.Marshal(policy)
	if err != nil {
		return err
	}

	url := "/_plugins/_ism/policies/" + s.config.IndexPrefix + "-retention"
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := s.client.Transport.Perform(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	// 409 means the policy already exists; that is fine.
	if res.StatusCode >= 400 && res.StatusCode != http.StatusConflict {
		msg, _ := io.ReadAll(res.Body)
		return fmt.Errorf("status %d: %s", res.StatusCode, string(msg))
	}
	return nil
}
