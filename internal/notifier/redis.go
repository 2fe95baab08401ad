package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"ChannelSentinel/internal/logging"
)

// latestKey is the hash holding the most recent alert per symbol.
const latestKey = "sentinel:latest"

// RedisPublisher publishes alerts on a pub/sub channel and keeps the latest alert per symbol.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	logger  zerolog.Logger
}

// NewRedisPublisher connects to Redis and verifies the connection.
func NewRedisPublisher(ctx context.Context, addr, password string, db int, channel string, logger zerolog.Logger) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}

	return &RedisPublisher{
		client:  client,
		channel: channel,
		logger:  logging.Component(logger, "redis"),
	}, nil
}

func (p *RedisPublisher) Name() string { return "redis" }

// Deliver publishes the alert and records it as the symbol's latest.
func (p *RedisPublisher) Deliver(ctx context.Context, a *Alert) error {
	payload, err := encodeAlert(a)
	if err != nil {
		return err
	}

	pipe := p.client.TxPipeline()
	pipe.Publish(ctx, p.channel, payload)
	pipe.HSet(ctx, latestKey, a.Symbol, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish %s alert: %w", a.Symbol, err)
	}
	p.logger.Debug().Str("symbol", a.Symbol).Str("channel", p.channel).Msg("alert published")
	return nil
}

// Latest returns the last published alert of symbol, or nil when there is none.
func (p *RedisPublisher) Latest(ctx context.Context, symbol string) (*Alert, error) {
	raw, err := p.client.HGet(ctx, latestKey, symbol).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read latest %s alert: %w", symbol, err)
	}
	var a Alert
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decode latest %s alert: %w", symbol, err)
	}
	return &a, nil
}

// Close closes the Redis client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

func encodeAlert(a *Alert) ([]byte, error) {
	payload, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal alert: %w", err)
	}
	return payload, nil
}
