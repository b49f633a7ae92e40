package events

import (
	"context"
	"encoding/json"
	"time"

	"food-marketplace-api/apperrors"

	"github.com/streadway/amqp"
)

// publisher is the part of *amqp.Channel the sink needs.
type publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPSink forwards records to a topic exchange, routed by event type, for
// out-of-band consumers such as payment reconciliation and email.
type AMQPSink struct {
	ch       publisher
	conn     *amqp.Connection
	exchange string
}

func NewAMQPSink(ch publisher, exchange string) *AMQPSink {
	return &AMQPSink{ch: ch, exchange: exchange}
}

// DialAMQP connects and declares a durable topic exchange.
func DialAMQP(url, exchange string) (*AMQPSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, apperrors.Dependency(err, "connect to rabbitmq")
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, apperrors.Dependency(err, "open rabbitmq channel")
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, apperrors.Dependency(err, "declare exchange %s", exchange)
	}
	s := NewAMQPSink(ch, exchange)
	s.conn = conn
	return s, nil
}

func (a *AMQPSink) Name() string { return "amqp" }

func (a *AMQPSink) Emit(_ context.Context, ev Lifecycle) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return apperrors.Dependency(err, "encode lifecycle event")
	}
	err = a.ch.Publish(a.exchange, string(ev.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         string(ev.Type),
		Body:         body,
	})
	if err != nil {
		return apperrors.Dependency(err, "publish %s to rabbitmq", ev.Type)
	}
	return nil
}

func (a *AMQPSink) Close() error {
	err := a.ch.Close()
	if a.conn != nil {
		if cerr := a.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
