package api

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"todosync/domain"
)

// RedisRelay carries sync envelopes between server instances over a Redis
// pub/sub channel so siblings connected to different instances still receive
// each other's events.
type RedisRelay struct {
	client  *redis.Client
	channel string
}

// NewRedisRelay creates a relay publishing on the given channel.
func NewRedisRelay(client *redis.Client, channel string) *RedisRelay {
	return &RedisRelay{client: client, channel: channel}
}

// Publish sends the envelope to the relay channel.
func (r *RedisRelay) Publish(ctx context.Context, env domain.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, data).Err()
}

// Subscribe listens on the relay channel and hands every envelope to the hub
// for local delivery. It reconnects with a short backoff if the subscription
// channel closes, and returns when ctx is cancelled.
func (r *RedisRelay) Subscribe(ctx context.Context, hub *Hub, logger *log.Logger) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	for {
		sub := r.client.Subscribe(ctx, r.channel)
		ch := sub.Channel()
	recv:
		for {
			select {
			case <-ctx.Done():
				sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break recv
				}
				var env domain.Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					logger.Errorf("unable to parse relay message: %v", err)
					continue
				}
				if err := env.Event.Valid(); err != nil {
					logger.Errorf("invalid relayed event: %v", err)
					continue
				}
				hub.Deliver(env.UserID, env.Origin, env.Event)
			}
		}
		sub.Close()
		if ctx.Err() != nil {
			return
		}
		logger.Error("relay channel closed, reconnecting")
		time.Sleep(time.Second)
	}
}
