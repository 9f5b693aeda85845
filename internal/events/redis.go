package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/kociii/reData/internal/model"
)

// NewRedisClient connects and pings so a bad address fails at startup,
// not on the first publish.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return client, nil
}

// RedisNotifier publishes each event as JSON on "<prefix>:<task_id>".
// Publish failures are logged and swallowed; external observers are
// best-effort.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	log     zerolog.Logger
}

func NewRedisNotifier(client *redis.Client, channel string, log zerolog.Logger) *RedisNotifier {
	return &RedisNotifier{
		client:  client,
		channel: channel,
		log:     log.With().Str("component", "events").Logger(),
	}
}

func (n *RedisNotifier) Publish(ctx context.Context, ev model.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		n.log.Error().Err(err).Str("event", ev.Event).Msg("failed to encode event")
		return
	}
	channel := n.channel + ":" + ev.TaskID
	if err := n.client.Publish(ctx, channel, payload).Err(); err != nil {
		n.log.Warn().Err(err).Str("channel", channel).Msg("failed to publish event")
	}
}
