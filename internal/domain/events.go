package domain

import (
	"context"
	"time"
)

// ContentEvent describes one successful admin mutation of a content collection.
type ContentEvent struct {
	Collection string    `json:"collection"`
	Action     string    `json:"action"` // created, updated, deleted
	RecordID   string    `json:"record_id,omitempty"`
	Actor      string    `json:"actor,omitempty"` // admin id, when known
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher emits best-effort domain events. Publish failures are logged by
// implementations and never affect the outcome of the mutation that produced them.
type EventPublisher interface {
	PublishContentEvent(ctx context.Context, event ContentEvent) error
	PublishContactReceived(ctx context.Context, msg ContactMessage) error
}
