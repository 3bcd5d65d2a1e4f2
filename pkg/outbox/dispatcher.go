package outbox

import (
	"context"
	"strconv"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Dispatcher struct {
	log      *zap.Logger
	producer Producer
	topic    string
}

func NewDispatcher(log *zap.Logger, producer Producer, topic string) *Dispatcher {
	return &Dispatcher{
		log:      log.With(zap.String("component", "outbox_dispatcher")),
		producer: producer,
		topic:    topic,
	}
}

// NewKafkaWriter builds the writer used in production. Topic is set per message.
func NewKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, event Event) error {
	msg := kafka.Message{
		Topic: d.topic,
		Key:   []byte(event.AggregateID),
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "aggregate_type", Value: []byte(event.AggregateType)},
			{Key: "event_id", Value: []byte(strconv.FormatInt(event.ID, 10))},
		},
		Time: event.CreatedAt,
	}

	if err := d.producer.WriteMessages(ctx, msg); err != nil {
		d.log.Error("Outbox dispatch failed",
			zap.Int64("event_id", event.ID),
			zap.String("type", event.Type),
			zap.Error(err),
		)
		return err
	}

	d.log.Debug("Outbox event dispatched",
		zap.Int64("event_id", event.ID),
		zap.String("type", event.Type),
	)
	return nil
}
