package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"transcript-request-service/internal/model"

	"github.com/go-redis/redis/v8"
)

// EventPublisher queues status events for callback delivery.
type EventPublisher interface {
	PublishStatusEvent(ctx context.Context, event model.StatusEvent) error
}

type Producer struct {
	client *redis.Client
	queue  string
}

func NewProducer(redisClient *RedisClient, queueName string) *Producer {
	return &Producer{
		client: redisClient.Client(),
		queue:  queueName,
	}
}

func (p *Producer) PublishStatusEvent(ctx context.Context, event model.StatusEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal status event: %w", err)
	}

	return p.client.LPush(ctx, p.queue, data).Err()
}

// NoopProducer drops events; used when Redis is not configured.
type NoopProducer struct{}

func (NoopProducer) PublishStatusEvent(ctx context.Context, event model.StatusEvent) error {
	return nil
}
