package port

import (
	"context"
	"time"
)

// Clip lifecycle event types.
const (
	EventClipCreated = "clip.created"
	EventClipReady   = "clip.ready"
	EventClipFailed  = "clip.failed"
	EventClipExpired = "clip.expired"
	EventClipDeleted = "clip.deleted"
)

// ClipEvent 剪辑生命周期事件
type ClipEvent struct {
	Type       string    `json:"type"`
	ClipID     string    `json:"clipId"`
	UserID     string    `json:"userId,omitempty"`
	Status     string    `json:"status"`
	DurationMs int64     `json:"durationMs,omitempty"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// EventPublisher delivers lifecycle events. Delivery is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, event ClipEvent) error
}
