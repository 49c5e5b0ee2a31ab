package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/domain"
	"gitlab.com/lumiere-salon/api/salon-cms-service/pkg/storagekeys"
)

// InvalidationPubSubAdapter implements both CacheInvalidationPublisher and
// CacheInvalidationSubscriber using Redis pub/sub. Every replica subscribes to
// one shared channel and drops its local document cache entry per message.
type InvalidationPubSubAdapter struct {
	redisClient *redis.Client
	logger      domain.Logger
	sub         *redis.PubSub // Holds the active subscription
}

// NewInvalidationPubSubAdapter creates a new adapter for Redis pub/sub.
func NewInvalidationPubSubAdapter(redisClient *redis.Client, logger domain.Logger) *InvalidationPubSubAdapter {
	return &InvalidationPubSubAdapter{
		redisClient: redisClient,
		logger:      logger,
	}
}

// PublishInvalidation publishes an invalidation message to the shared channel.
func (a *InvalidationPubSubAdapter) PublishInvalidation(ctx context.Context, msg domain.InvalidationMessage) error {
	payloadBytes, err := json.Marshal(msg)
	if err != nil {
		a.logger.Error(ctx, "Failed to marshal InvalidationMessage for publishing", "key", msg.Key, "error", err.Error())
		return fmt.Errorf("failed to marshal InvalidationMessage: %w", err)
	}

	channel := storagekeys.InvalidationChannel()
	if err = a.redisClient.Publish(ctx, channel, string(payloadBytes)).Err(); err != nil {
		a.logger.Error(ctx, "Failed to publish cache invalidation to Redis", "channel", channel, "key", msg.Key, "error", err.Error())
		return fmt.Errorf("failed to publish to Redis channel '%s': %w", channel, err)
	}

	a.logger.Debug(ctx, "Published cache invalidation", "channel", channel, "key", msg.Key, "origin", msg.Origin)
	return nil
}

// SubscribeToInvalidations subscribes to the invalidation channel and invokes the
// handler for each message. This is a blocking call and should typically be run in
// a goroutine; it returns when ctx is cancelled or the channel closes.
func (a *InvalidationPubSubAdapter) SubscribeToInvalidations(ctx context.Context, handler domain.InvalidationHandler) error {
	if a.sub != nil {
		return fmt.Errorf("already subscribed or subscription active on this adapter instance")
	}

	channel := storagekeys.InvalidationChannel()
	a.sub = a.redisClient.Subscribe(ctx, channel)

	// Confirm the subscription before consuming.
	if _, err := a.sub.Receive(ctx); err != nil {
		a.logger.Error(ctx, "Failed to confirm Redis subscription", "channel", channel, "error", err.Error())
		a.sub = nil
		return fmt.Errorf("failed to subscribe to Redis channel '%s': %w", channel, err)
	}

	a.logger.Info(ctx, "Subscribed to cache invalidation channel", "channel", channel)

	ch := a.sub.Channel()
	for {
		select {
		case <-ctx.Done():
			a.logger.Info(ctx, "Invalidation subscriber shutting down due to context cancellation", "channel", channel)
			return nil
		case m, ok := <-ch:
			if !ok {
				a.logger.Warn(ctx, "Invalidation subscription channel closed", "channel", channel)
				return nil
			}
			var msg domain.InvalidationMessage
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				a.logger.Error(ctx, "Failed to unmarshal invalidation message, skipping", "channel", channel, "error", err.Error())
				continue
			}
			handler(msg)
		}
	}
}

// Close terminates the active subscription, if any.
func (a *InvalidationPubSubAdapter) Close() error {
	if a.sub == nil {
		return nil
	}
	err := a.sub.Close()
	a.sub = nil
	return err
}
