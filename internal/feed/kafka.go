package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/tapntake/api/internal/metrics"
)

// KafkaPublisher writes events to a topic keyed by order id, so the changes
// of one order stay in one partition and keep their order.
type KafkaPublisher struct {
	writer  *kafka.Writer
	metrics *metrics.Metrics
}

func NewKafkaPublisher(brokers []string, topic string, m *metrics.Metrics) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
		metrics: m,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	msg, err := Message(ev)
	if err != nil {
		return err
	}
	err = p.writer.WriteMessages(ctx, msg)
	p.metrics.EventPublished(ev.Type, err)
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Message encodes ev as a Kafka message.
func Message(ev Event) (kafka.Message, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal event: %w", err)
	}
	key := ev.OrderID
	if key == "" {
		key = ev.Type
	}
	return kafka.Message{Key: []byte(key), Value: payload}, nil
}

// Relay consumes the topic and delivers every event to the local sink.
// Each instance joins its own consumer group so all of them see every event.
type Relay struct {
	reader  messageReader
	sink    Sink
	topic   string
	backoff func() backoff.BackOff
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

func NewRelay(brokers []string, topic, groupPrefix string, sink Sink) *Relay {
	return newRelay(kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupPrefix + "-" + uuid.NewString(),
		StartOffset: kafka.LastOffset,
	}), topic, sink)
}

func newRelay(reader messageReader, topic string, sink Sink) *Relay {
	return &Relay{reader: reader, sink: sink, topic: topic, backoff: readBackOff}
}

// readBackOff paces reads while the broker keeps failing. It never stops;
// the relay only exits on ctx.
func readBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// Run blocks until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	defer r.reader.Close()

	b := r.backoff()
	for {
		msg, err := r.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Printf("feed relay shutting down (topic %s)", r.topic)
				return
			}
			delay := b.NextBackOff()
			log.Printf("ERROR: read feed message: %v (retrying in %s)", err, delay)
			if !sleep(ctx, delay) {
				log.Printf("feed relay shutting down (topic %s)", r.topic)
				return
			}
			continue
		}
		b.Reset()

		if err := deliver(r.sink, msg.Value); err != nil {
			log.Printf("ERROR: handle feed message: %v", err)
		}
	}
}

// sleep waits d or until ctx is done, reporting whether the wait completed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d == backoff.Stop {
		d = 30 * time.Second
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func deliver(sink Sink, value []byte) error {
	var ev Event
	if err := json.Unmarshal(value, &ev); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	if ev.Type == "" {
		return errors.New("decode event: missing type")
	}
	sink.Deliver(ev)
	return nil
}
