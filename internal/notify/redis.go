package notify

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"signal-lab/internal/domain"
)

// RedisPublisher publishes decisions on the <prefix>:decisions channel.
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
	logger  *zap.Logger
}

// NewRedisPublisher wraps client. The caller owns the client.
func NewRedisPublisher(client redis.UniversalClient, channelPrefix string, logger *zap.Logger) *RedisPublisher {
	if channelPrefix == "" {
		channelPrefix = "signal-lab"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPublisher{
		client:  client,
		channel: channelPrefix + ":decisions",
		logger:  logger,
	}
}

var _ DecisionSink = (*RedisPublisher)(nil)

// Channel returns the pub/sub channel name.
func (p *RedisPublisher) Channel() string {
	return p.channel
}

// Publish sends d as JSON.
func (p *RedisPublisher) Publish(ctx context.Context, d domain.TradeDecision) error {
	data, err := encode(d)
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", p.channel, err)
	}
	p.logger.Debug("published decision",
		zap.String("channel", p.channel),
		zap.String("symbol", d.Symbol),
		zap.String("signal_id", d.SignalID),
	)
	return nil
}
