package resource

import (
	"cliparr/pkg/config"
	"cliparr/pkg/kafka"
	"cliparr/pkg/logger"
	"cliparr/pkg/manager"
)

// KafkaResource opens the shared producer client when kafka.enabled is set.
type KafkaResource struct {
	opened bool
}

type KafkaResourcePlugin struct{}

func (p *KafkaResourcePlugin) Name() string { return "kafka" }

func (p *KafkaResourcePlugin) MustCreateResource() manager.Resource { return &KafkaResource{} }

func (r *KafkaResource) MustOpen() {
	cfg := config.GetGlobalConfig()
	if cfg == nil || !cfg.Kafka.Enabled {
		logger.Infof("Kafka disabled, clip events are not published")
		return
	}
	kafka.DefaultClient().MustOpen()
	if topic := cfg.Kafka.Topics.ClipEvents; topic != "" {
		if err := kafka.DefaultClient().EnsureTopic(topic, 1, 1); err != nil {
			logger.Warnf("Kafka ensure topic failed topic=%s error=%v", topic, err)
		}
	}
	r.opened = true
}

func (r *KafkaResource) Close() {
	if r.opened {
		kafka.DefaultClient().Close()
	}
}

// KafkaEnabled reports whether clip events should go to kafka.
func KafkaEnabled() bool {
	cfg := config.GetGlobalConfig()
	return cfg != nil && cfg.Kafka.Enabled
}
