// Package client is a thin HTTP client for the minisoc API.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/minisoc-systems/minisoc/internal/models"
)

// Client talks to a running minisoc instance.
type Client struct {
	baseURL string
	client  *http.Client
}

// New creates a client for the given base URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) doRequest(method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewBuffer(bodyBytes)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.client.Do(req)
}

func (c *Client) decode(resp *http.Response, out interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// IngestEvent posts a single event.
func (c *Client) IngestEvent(req *models.IngestEventRequest) (*models.IngestEventResponse, error) {
	resp, err := c.doRequest(http.MethodPost, "/ingest", req)
	if err != nil {
		return nil, err
	}
	var out models.IngestEventResponse
	if err := c.decode(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QueryEvents searches events with optional filters.
func (c *Client) QueryEvents(eventType, sourceIP string, lastMinutes int) ([]models.SecurityEvent, error) {
	q := url.Values{}
	if eventType != "" {
		q.Set("event_type", eventType)
	}
	if sourceIP != "" {
		q.Set("source_ip", sourceIP)
	}
	if lastMinutes > 0 {
		q.Set("lastMinutes", fmt.Sprintf("%d", lastMinutes))
	}

	path := "/events"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	resp, err := c.doRequest(http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var out []models.SecurityEvent
	if err := c.decode(resp, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListAlerts returns the most recent alerts.
func (c *Client) ListAlerts() ([]models.Alert, error) {
	resp, err := c.doRequest(http.MethodGet, "/alerts", nil)
	if err != nil {
		return nil, err
	}
	var out []models.Alert
	if err := c.decode(resp, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetAlert fetches a single alert with its related events.
func (c *Client) GetAlert(id string) (*models.Alert, error) {
	resp, err := c.doRequest(http.MethodGet, "/alerts/"+id, nil)
	if err != nil {
		return nil, err
	}
	var out models.Alert
	if err := c.decode(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateAlertStatus transitions an alert to a new status.
func (c *Client) UpdateAlertStatus(id, status string) (*models.Alert, error) {
	req := models.UpdateAlertStatusRequest{Status: models.AlertStatus(status)}
	resp, err := c.doRequest(http.MethodPatch, "/alerts/"+id+"/status", req)
	if err != nil {
		return nil, err
	}
	var out models.Alert
	if err := c.decode(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListIncidents returns the correlated incident view.
func (c *Client) ListIncidents() ([]models.Incident, error) {
	resp, err := c.doRequest(http.MethodGet, "/incidents", nil)
	if err != nil {
		return nil, err
	}
	var out []models.Incident
	if err := c.decode(resp, &out); err != nil {
		return nil, err
	}
	return out, nil
}
