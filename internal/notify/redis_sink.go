package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/evetabi/predictarena/internal/config"
	"github.com/evetabi/predictarena/internal/domain"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to Redis and verifies the connection with PING.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("notify: redis ping: %w", err)
	}
	return rdb, nil
}

// RedisSink publishes every event as JSON on the pub/sub channel
// <prefix>:<type> and, when a stream is configured, appends it to a capped
// stream so late consumers can replay recent history.
type RedisSink struct {
	rdb          *redis.Client
	prefix       string
	stream       string
	streamMaxLen int64
}

// NewRedisSink creates a RedisSink on an existing client.
func NewRedisSink(rdb *redis.Client, cfg config.RedisConfig) *RedisSink {
	maxLen := cfg.StreamMaxLen
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &RedisSink{rdb: rdb, prefix: cfg.ChannelPrefix, stream: cfg.Stream, streamMaxLen: maxLen}
}

func (s *RedisSink) Name() string { return "redis" }

// Channel returns the pub/sub channel an event type is published on.
func (s *RedisSink) Channel(typ domain.EventType) string {
	if s.prefix == "" {
		return string(typ)
	}
	return s.prefix + ":" + string(typ)
}

// Publish sends evt to its channel and stream in one pipeline.
func (s *RedisSink) Publish(ctx context.Context, evt domain.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("notify: marshal %s: %w", evt.Type, err)
	}

	_, err = s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.Publish(ctx, s.Channel(evt.Type), payload)
		if s.stream != "" {
			p.XAdd(ctx, &redis.XAddArgs{
				Stream: s.stream,
				MaxLen: s.streamMaxLen,
				Approx: true,
				Values: map[string]interface{}{
					"type":    string(evt.Type),
					"payload": payload,
				},
			})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("notify: redis publish %s: %w", evt.Type, err)
	}
	return nil
}
