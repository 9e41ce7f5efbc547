package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cliparr/ddd/domain/port"
	"cliparr/pkg/logger"
)

// Producer is the slice of the kafka client the publisher needs.
type Producer interface {
	Produce(ctx context.Context, topic string, key, value []byte) error
}

// KafkaPublisher writes clip lifecycle events keyed by clip id, so one clip's events stay ordered.
type KafkaPublisher struct {
	producer Producer
	topic    string
	timeout  time.Duration
}

// NewKafkaPublisher 创建 Kafka 事件发布器
func NewKafkaPublisher(producer Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic, timeout: 5 * time.Second}
}

// Publish implements port.EventPublisher.
func (p *KafkaPublisher) Publish(ctx context.Context, evt port.ClipEvent) error {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal clip event: %w", err)
	}

	// 生命周期事件不能被请求的取消拖住
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()
	if err := p.producer.Produce(ctx, p.topic, []byte(evt.ClipID), value); err != nil {
		logger.Warn("Failed to publish clip event", map[string]interface{}{
			"type":    evt.Type,
			"clip_id": evt.ClipID,
			"topic":   p.topic,
			"error":   err.Error(),
		})
		return err
	}
	logger.Debug("Clip event published", map[string]interface{}{
		"type":    evt.Type,
		"clip_id": evt.ClipID,
	})
	return nil
}

// NoopPublisher drops every event. Used when kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, port.ClipEvent) error { return nil }
