package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"food-marketplace-api/apperrors"
	"food-marketplace-api/logger"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisBus_RelayDeliversToLocalHub(t *testing.T) {
	hub := NewHub(4)
	bus := NewRedisBus(nil, hub, logger.NewNop())
	sub := bus.Subscribe("12")
	defer sub.Close()

	frame, err := json.Marshal(mustEvent(t, KindOrderUpdate, map[string]string{"status": "preparing"}))
	require.NoError(t, err)
	require.NoError(t, bus.deliver(context.Background(), Topic("12"), string(frame)))

	ev := <-sub.C()
	assert.Equal(t, KindOrderUpdate, ev.Kind)
	assert.JSONEq(t, `{"status":"preparing"}`, string(ev.Data))
}

func TestRedisBus_RelayRejectsMalformed(t *testing.T) {
	bus := NewRedisBus(nil, NewHub(1), logger.NewNop())
	assert.True(t, apperrors.IsValidation(bus.deliver(context.Background(), "other:1", "{}")))
	assert.True(t, apperrors.IsValidation(bus.deliver(context.Background(), Topic("1"), "not json")))
}

func unreachableRedis(t *testing.T) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestRedisBus_PublishFailureIsDependency(t *testing.T) {
	bus := NewRedisBus(unreachableRedis(t), NewHub(1), logger.NewNop())
	bus.relaying.Store(true)
	err := bus.Publish(context.Background(), "1", mustEvent(t, KindOrderUpdate, nil))
	assert.True(t, apperrors.IsDependency(err))
}

func TestRedisBus_PublishesLocallyWhileRelayDown(t *testing.T) {
	bus := NewRedisBus(unreachableRedis(t), NewHub(4), logger.NewNop())
	sub := bus.Subscribe("7")
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 700*time.Millisecond)
	defer cancel()
	done := make(chan struct{})
	go func() {
		bus.Supervise(ctx, 50*time.Millisecond, 200*time.Millisecond)
		close(done)
	}()

	require.NoError(t, bus.Publish(context.Background(), "7", mustEvent(t, KindOrderUpdate, map[string]string{"status": "accepted"})))
	select {
	case ev := <-sub.C():
		assert.Equal(t, KindOrderUpdate, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("local subscriber got nothing")
	}
	assert.False(t, bus.Relaying())

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not stop with its context")
	}
}
