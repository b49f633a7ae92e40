package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type Kind string

const (
	KindOrderUpdate    Kind = "order:update"
	KindDriverAssigned Kind = "driver:assigned"
	KindDriverLocation Kind = "driver:location"
)

// Event is also the wire frame pushed to subscribers.
type Event struct {
	Kind Kind            `json:"event"`
	Data json.RawMessage `json:"data"`
}

func NewEvent(kind Kind, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	return Event{Kind: kind, Data: data}, nil
}

// DriverAssigned is the payload of driver:assigned.
type DriverAssigned struct {
	DriverID     uint   `json:"driverId"`
	DriverName   string `json:"driverName"`
	DriverPhone  string `json:"driverPhone"`
	Vehicle      string `json:"vehicle"`
	LicensePlate string `json:"licensePlate"`
}

// DriverLocation is the payload of driver:location.
type DriverLocation struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// Bus is channel-scoped broadcast to currently connected subscribers.
// Callers check viewing rights before subscribing.
type Bus interface {
	Publish(ctx context.Context, channel string, ev Event) error
	Subscribe(channel string) *Subscription
}

// OrderChannel names the channel of one order.
func OrderChannel(orderID uint) string {
	return fmt.Sprintf("%d", orderID)
}
