package alert

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultChannel = "shop-console:alerts"

// Redis publishes the cue on a pub/sub channel so every open console screen
// can ring, not only the machine running the poller.
type Redis struct {
	client  *redis.Client
	channel string
	now     func() time.Time
}

func NewRedis(client *redis.Client, channel string) *Redis {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Redis{client: client, channel: channel, now: time.Now}
}

func (r *Redis) Alert(ctx context.Context) error {
	payload, err := json.Marshal(map[string]any{
		"type": "new_order",
		"at":   r.now().UTC(),
	})
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, payload).Err()
}
