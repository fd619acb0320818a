package queue

import (
	"context"
	"errors"
	"time"

	"transcript-request-service/internal/logger"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

const pollTimeout = 5 * time.Second

type Consumer struct {
	client    *redis.Client
	queue     string
	dlqSuffix string
	log       zerolog.Logger
}

type MessageHandler func(ctx context.Context, data []byte) error

func NewConsumer(redisClient *RedisClient, queueName, dlqSuffix string) *Consumer {
	return &Consumer{
		client:    redisClient.Client(),
		queue:     queueName,
		dlqSuffix: dlqSuffix,
		log:       logger.Component("queue"),
	}
}

func (c *Consumer) DLQName() string {
	return c.queue + c.dlqSuffix
}

// Consume blocks until ctx is cancelled. A message whose handler fails is
// pushed to the dead-letter list.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		result, err := c.client.BRPop(ctx, pollTimeout, c.queue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error().Err(err).Str("queue", c.queue).Msg("Failed to consume message")
			time.Sleep(time.Second)
			continue
		}

		if len(result) < 2 {
			continue
		}

		message := result[1]
		if err := handler(ctx, []byte(message)); err != nil {
			c.log.Error().Err(err).Str("queue", c.queue).Msg("Failed to process message")
			c.DeadLetter(ctx, []byte(message))
		}
	}
}

// DeadLetter parks a message for manual inspection.
func (c *Consumer) DeadLetter(ctx context.Context, message []byte) {
	dlq := c.DLQName()
	if err := c.client.LPush(context.WithoutCancel(ctx), dlq, message).Err(); err != nil {
		c.log.Error().Err(err).Str("dlq", dlq).Msg("Failed to move message to DLQ")
	}
}
