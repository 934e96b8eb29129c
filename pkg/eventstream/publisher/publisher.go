// Package publisher builds the configured eventstream.Publisher.
package publisher

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/papercomputeco/aisearch/pkg/eventstream"
	"github.com/papercomputeco/aisearch/pkg/eventstream/kafka"
	"github.com/papercomputeco/aisearch/pkg/eventstream/nats"
	"github.com/papercomputeco/aisearch/pkg/eventstream/nop"
	"github.com/papercomputeco/aisearch/pkg/eventstream/redis"
)

// Supported providers.
const (
	ProviderNone  = "none"
	ProviderKafka = "kafka"
	ProviderNATS  = "nats"
	ProviderRedis = "redis"
)

// Config selects and configures a publisher backend.
type Config struct {
	// Provider is one of "none", "kafka", "nats" or "redis". Empty means
	// "none".
	Provider string

	// Target is the comma separated broker list for kafka, or the server
	// URL for nats and redis.
	Target string

	// Topic is the kafka topic, nats subject or redis stream key.
	Topic string
}

// New returns the publisher for cfg.
func New(cfg Config, log *slog.Logger) (eventstream.Publisher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderNone:
		return nop.NewPublisher(log), nil

	case ProviderKafka:
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers: splitTargets(cfg.Target),
			Topic:   cfg.Topic,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		return p, nil

	case ProviderNATS:
		p, err := nats.NewPublisher(nats.Config{
			URL:     cfg.Target,
			Subject: cfg.Topic,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("creating nats publisher: %w", err)
		}
		return p, nil

	case ProviderRedis:
		p, err := redis.NewPublisher(redis.Config{
			Target: cfg.Target,
			Stream: cfg.Topic,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("creating redis publisher: %w", err)
		}
		return p, nil

	default:
		return nil, fmt.Errorf("unknown eventstream provider: %q (available: none, kafka, nats, redis)", cfg.Provider)
	}
}

func splitTargets(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
