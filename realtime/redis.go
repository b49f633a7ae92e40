package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"

	"food-marketplace-api/apperrors"
	"food-marketplace-api/logger"

	"github.com/go-redis/redis/v8"
)

const topicPrefix = "orders:"

// RedisBus publishes through Redis so that every instance's local subscribers
// receive every instance's events. Run relays the pattern subscription into the hub.
// While the relay is not subscribed, Publish delivers to the local hub only.
type RedisBus struct {
	rdb *redis.Client
	hub *Hub
	log logger.ILogger

	relaying atomic.Bool
}

func NewRedisBus(rdb *redis.Client, hub *Hub, log logger.ILogger) *RedisBus {
	return &RedisBus{rdb: rdb, hub: hub, log: log}
}

func Topic(channel string) string {
	return topicPrefix + channel
}

func (b *RedisBus) Publish(ctx context.Context, channel string, ev Event) error {
	if !b.relaying.Load() {
		return b.hub.Publish(ctx, channel, ev)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return apperrors.Dependency(err, "encode event")
	}
	if err := b.rdb.Publish(ctx, Topic(channel), data).Err(); err != nil {
		return apperrors.Dependency(err, "publish %s to redis", ev.Kind)
	}
	return nil
}

func (b *RedisBus) Subscribe(channel string) *Subscription {
	return b.hub.Subscribe(channel)
}

// Run blocks until ctx is cancelled or the subscription fails.
func (b *RedisBus) Run(ctx context.Context) error {
	ps := b.rdb.PSubscribe(ctx, topicPrefix+"*")
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return apperrors.Dependency(err, "subscribe to redis")
	}
	b.relaying.Store(true)
	defer b.relaying.Store(false)
	b.log.Info("redis relay started", logger.String("pattern", topicPrefix+"*"))

	msgs := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := b.deliver(ctx, msg.Channel, msg.Payload); err != nil {
				b.log.Warning("drop malformed relay message", logger.String("topic", msg.Channel), logger.Error(err))
			}
		}
	}
}

// Relaying reports whether events currently travel through Redis.
func (b *RedisBus) Relaying() bool {
	return b.relaying.Load()
}

// Supervise keeps Run alive until ctx is cancelled, waiting between attempts
// with a doubling delay capped at maxWait.
func (b *RedisBus) Supervise(ctx context.Context, minWait, maxWait time.Duration) {
	wait := minWait
	for {
		started := time.Now()
		err := b.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		if time.Since(started) > maxWait {
			wait = minWait
		}
		b.log.Warning("redis relay down, publishing locally",
			logger.Error(err), logger.Duration("retry_in", wait))

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
		wait *= 2
		if wait > maxWait {
			wait = maxWait
		}
	}
}

func (b *RedisBus) deliver(ctx context.Context, topic, payload string) error {
	if !strings.HasPrefix(topic, topicPrefix) {
		return apperrors.Validation("unexpected topic %q", topic)
	}
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return apperrors.Validation("decode relay payload: %v", err)
	}
	return b.hub.Publish(ctx, strings.TrimPrefix(topic, topicPrefix), ev)
}
