package events

import (
	"context"
	"encoding/json"
	"strconv"

	"food-marketplace-api/apperrors"

	"github.com/Shopify/sarama"
)

// KafkaSink appends lifecycle records to a topic, keyed by order id so one
// order's records stay in one partition.
type KafkaSink struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaSink(producer sarama.SyncProducer, topic string) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic}
}

// DialKafka builds a synchronous producer for brokers.
func DialKafka(brokers []string, topic string) (*KafkaSink, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, apperrors.Dependency(err, "create kafka producer")
	}
	return NewKafkaSink(producer, topic), nil
}

func (k *KafkaSink) Name() string { return "kafka" }

func (k *KafkaSink) Emit(_ context.Context, ev Lifecycle) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return apperrors.Dependency(err, "encode lifecycle event")
	}
	_, _, err = k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(strconv.FormatUint(uint64(ev.OrderID), 10)),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("type"), Value: []byte(ev.Type)},
		},
	})
	if err != nil {
		return apperrors.Dependency(err, "send %s to kafka", ev.Type)
	}
	return nil
}

func (k *KafkaSink) Close() error {
	return k.producer.Close()
}
