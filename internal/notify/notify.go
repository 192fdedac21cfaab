// Package notify carries job lifecycle events from the agent and worker
// processes to the api process over Redis pub/sub, where the websocket
// handler fans them out to connected queue views.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Channel is the single pub/sub channel for job status traffic. The queue
// view is a shared back-office screen, so there is no per-user routing.
const Channel = "job_status"

// Event discriminates message kinds on the channel.
const (
	EventStatus  = "status"
	EventPreview = "preview"
)

// JobStatusMessage is the wire shape forwarded verbatim to websocket clients.
// Field names match what the queue view parses.
type JobStatusMessage struct {
	Event        string `json:"event"`
	JobID        uint   `json:"job_id"`
	Status       string `json:"status"`
	ErrorCode    int    `json:"error_code"`
	ErrorMessage string `json:"error_message,omitempty"`
	PreviewKey   string `json:"preview_key,omitempty"`
}

// Publisher publishes job events. A nil Publisher is a no-op, which keeps the
// dispatcher usable in tests without Redis.
type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) Publish(ctx context.Context, msg JobStatusMessage) error {
	if p == nil || p.client == nil {
		return nil
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal job status message: %w", err)
	}
	if err := p.client.Publish(ctx, Channel, data).Err(); err != nil {
		return fmt.Errorf("publish job status to %q: %w", Channel, err)
	}
	return nil
}
