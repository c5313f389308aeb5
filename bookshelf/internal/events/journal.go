package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/bookshelf/bookshelf/internal/model"
	cb "github.com/Astemirdum/bookshelf/pkg/circuit_breaker"
)

// Journal publishes book events to a Kafka topic.
type Journal struct {
	producer sarama.SyncProducer
	topic    string
	breaker  cb.CircuitBreaker
	log      *zap.Logger
}

func NewJournal(producer sarama.SyncProducer, topic string, log *zap.Logger) *Journal {
	return &Journal{
		producer: producer,
		topic:    topic,
		breaker: cb.New(cb.Config{
			RecordLength:     10,
			Timeout:          30 * time.Second,
			Percentile:       0.5,
			RecoveryRequests: 3,
		}),
		log: log.Named("journal"),
	}
}

// Publish sends event synchronously. A cancelled ctx drops the event unsent.
func (j *Journal) Publish(ctx context.Context, event model.BookEvent) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "publish")
	}
	data, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	msg := &sarama.ProducerMessage{
		Topic: j.topic,
		Key:   sarama.StringEncoder(strconv.FormatInt(event.BookID, 10)),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(event.Type)},
		},
	}
	return j.breaker.Call(func() error {
		partition, offset, err := j.producer.SendMessage(msg)
		if err != nil {
			return errors.Wrap(err, "SendMessage")
		}
		j.log.Debug("event published",
			zap.String("type", string(event.Type)),
			zap.Int64("book_id", event.BookID),
			zap.Int32("partition", partition),
			zap.Int64("offset", offset))
		return nil
	})
}

func (j *Journal) Close() error {
	return j.producer.Close()
}

// Discard drops every event. Used when no broker is configured.
type Discard struct{}

func (Discard) Publish(context.Context, model.BookEvent) error { return nil }

func (Discard) Close() error { return nil }
