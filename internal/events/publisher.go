// Package events publishes ledger and commission events after commit.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	RecordCreated = "record_created"
	RecordUpdated = "record_updated"
	RecordDeleted = "record_deleted"

	TransferCommissionCreated = "transfer_commission_created"
	TransferCommissionStatus  = "transfer_commission_status"
	EmployeeCommissionsSubmit = "employee_commissions_submitted"
)

type Event struct {
	EventType string      `json:"event_type"`
	EntityID  int64       `json:"entity_id"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// RedisPublisher sends each event to "<namespace>:events:<type>" and to
// "<namespace>:events:all".
type RedisPublisher struct {
	client    *redis.Client
	namespace string
}

func NewRedisPublisher(client *redis.Client, namespace string) *RedisPublisher {
	return &RedisPublisher{client: client, namespace: namespace}
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	channel := fmt.Sprintf("%s:events:%s", p.namespace, event.EventType)
	if err := p.client.Publish(ctx, channel, eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	if err := p.client.Publish(ctx, p.namespace+":events:all", eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish to all channel: %w", err)
	}

	return nil
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
