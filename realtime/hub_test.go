package realtime

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustEvent(t *testing.T, kind Kind, payload interface{}) Event {
	t.Helper()
	ev, err := NewEvent(kind, payload)
	require.NoError(t, err)
	return ev
}

func TestHub_PreservesPublishOrderPerChannel(t *testing.T) {
	hub := NewHub(16)
	ctx := context.Background()
	a := hub.Subscribe("1")
	b := hub.Subscribe("1")
	other := hub.Subscribe("2")
	defer a.Close()
	defer b.Close()
	defer other.Close()

	for i := 0; i < 10; i++ {
		require.NoError(t, hub.Publish(ctx, "1", mustEvent(t, KindOrderUpdate, map[string]int{"n": i})))
	}

	for _, sub := range []*Subscription{a, b} {
		for i := 0; i < 10; i++ {
			ev := <-sub.C()
			var got map[string]int
			require.NoError(t, json.Unmarshal(ev.Data, &got))
			assert.Equal(t, i, got["n"])
		}
	}
	assert.Len(t, other.C(), 0)
}

func TestHub_DropsWhenSubscriberQueueFull(t *testing.T) {
	hub := NewHub(2)
	ctx := context.Background()
	slow := hub.Subscribe("1")
	defer slow.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, hub.Publish(ctx, "1", mustEvent(t, KindDriverLocation, DriverLocation{Latitude: float64(i)})))
	}

	require.Len(t, slow.C(), 2)
	var first DriverLocation
	require.NoError(t, json.Unmarshal((<-slow.C()).Data, &first))
	assert.Equal(t, 0.0, first.Latitude)
}

func TestHub_NoReplayForLateSubscribers(t *testing.T) {
	hub := NewHub(4)
	ctx := context.Background()
	require.NoError(t, hub.Publish(ctx, "1", mustEvent(t, KindOrderUpdate, "early")))

	late := hub.Subscribe("1")
	defer late.Close()
	assert.Len(t, late.C(), 0)
}

func TestSubscription_CloseIsIdempotent(t *testing.T) {
	hub := NewHub(1)
	sub := hub.Subscribe("9")
	assert.Equal(t, 1, hub.Subscribers("9"))

	sub.Close()
	sub.Close()
	assert.Equal(t, 0, hub.Subscribers("9"))

	_, ok := <-sub.C()
	assert.False(t, ok)
	assert.NoError(t, hub.Publish(context.Background(), "9", mustEvent(t, KindOrderUpdate, nil)))
}

func TestEvent_WireFrame(t *testing.T) {
	ev := mustEvent(t, KindDriverAssigned, DriverAssigned{DriverID: 3, DriverName: "Dana", LicensePlate: "AB-123"})
	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"event":"driver:assigned","data":{"driverId":3,"driverName":"Dana","driverPhone":"","vehicle":"","licensePlate":"AB-123"}}`,
		string(raw),
	)
}
