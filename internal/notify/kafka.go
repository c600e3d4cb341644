package notify

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// publishTimeout bounds how long Publish may wait on the writer.
const publishTimeout = 2 * time.Second

// messageWriter is the subset of kafka.Writer used by KafkaPublisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes events to a Kafka topic, keyed by recipient so a
// user's events stay ordered within a partition.
//
// The writer runs in async mode: Publish enqueues and returns, and delivery
// failures are reported through the logger.
type KafkaPublisher struct {
	writer  messageWriter
	timeout time.Duration
}

// NewKafkaPublisher creates a publisher for the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string, lg *zap.Logger) *KafkaPublisher {
	var addrs []string
	for _, b := range brokers {
		if b = strings.TrimSpace(b); b != "" {
			addrs = append(addrs, b)
		}
	}
	return newKafkaPublisherWith(&kafka.Writer{
		Addr:         kafka.TCP(addrs...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
		Async:        true,
		Completion:   completionLogger(lg),
	})
}

func newKafkaPublisherWith(w messageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w, timeout: publishTimeout}
}

func completionLogger(lg *zap.Logger) func([]kafka.Message, error) {
	return func(msgs []kafka.Message, err error) {
		if err == nil {
			return
		}
		lg.Error("Deliver kafka messages", zap.Int("count", len(msgs)), zap.Error(err))
	}
}

// Publish writes e as a single JSON message. The write is detached from ctx
// cancellation and bounded by the publisher timeout.
func (k *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	key := e.UserID
	if e.ForAdmins() || key == "" {
		key = e.Type
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: e.JSON(),
		Time:  e.CreatedAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Type)},
		},
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), k.timeout)
	defer cancel()
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrap(err, "write kafka message")
	}
	return nil
}

// Close flushes pending messages and releases the writer.
func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}
