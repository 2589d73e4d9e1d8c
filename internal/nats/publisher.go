package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/minisoc-systems/minisoc/internal/models"
)

// Publisher implements detection.Notifier over NATS.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher on an established client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// AlertCreated publishes an alert-created notification.
func (p *Publisher) AlertCreated(ctx context.Context, alert *models.Alert) error {
	data, err := json.Marshal(newAlertCreatedEvent(alert))
	if err != nil {
		return fmt.Errorf("failed to marshal alert notification: %w", err)
	}
	return p.client.Publish(ctx, SubjectAlertsCreated, data)
}
