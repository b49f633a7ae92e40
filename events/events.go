package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"food-marketplace-api/metrics"
	"food-marketplace-api/models"
)

type Type string

const (
	OrderPlaced         Type = "order.placed"
	OrderStatusChanged  Type = "order.status_changed"
	OrderDriverAssigned Type = "order.driver_assigned"
	OrderPaymentUpdated Type = "order.payment_updated"
	ReviewCreated       Type = "review.created"
)

// Lifecycle is one durable audit record of something that happened to an order.
type Lifecycle struct {
	Type           Type                 `json:"type"`
	OrderID        uint                 `json:"order_id"`
	OrderNumber    string               `json:"order_number,omitempty"`
	UserID         uint                 `json:"user_id,omitempty"`
	RestaurantID   *uint                `json:"restaurant_id,omitempty"`
	DriverID       *uint                `json:"driver_id,omitempty"`
	Status         models.OrderStatus   `json:"status,omitempty"`
	PreviousStatus models.OrderStatus   `json:"previous_status,omitempty"`
	PaymentStatus  models.PaymentStatus `json:"payment_status,omitempty"`
	Total          float64              `json:"total,omitempty"`
	Actor          string               `json:"actor,omitempty"`
	Message        string               `json:"message,omitempty"`
	At             time.Time            `json:"at"`
}

// FromOrder fills the order-derived fields of a record.
func FromOrder(t Type, o *models.Order, actor string) Lifecycle {
	return Lifecycle{
		Type:          t,
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		UserID:        o.UserID,
		RestaurantID:  o.RestaurantID,
		DriverID:      o.DriverID,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		Total:         o.Total,
		Actor:         actor,
		At:            time.Now().UTC(),
	}
}

// Sink receives lifecycle records out of band. Failures never roll back the
// state change that produced the record.
type Sink interface {
	Emit(ctx context.Context, ev Lifecycle) error
	Close() error
}

type namedSink interface {
	Sink
	Name() string
}

// Multi fans one record out to several sinks.
type Multi []Sink

func (m Multi) Emit(ctx context.Context, ev Lifecycle) error {
	var errs []error
	for _, s := range m {
		if err := s.Emit(ctx, ev); err != nil {
			name := "unknown"
			if n, ok := s.(namedSink); ok {
				name = n.Name()
			}
			metrics.SinkFailures.WithLabelValues(name).Inc()
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Emit(context.Context, Lifecycle) error { return nil }
func (Nop) Close() error                          { return nil }

// Recorder keeps records in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Lifecycle
}

func (r *Recorder) Emit(_ context.Context, ev Lifecycle) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) All() []Lifecycle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Lifecycle(nil), r.events...)
}

func (r *Recorder) Close() error { return nil }
