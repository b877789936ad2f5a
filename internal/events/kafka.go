package events

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
)

const writeTimeout = 5 * time.Second

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Topics names the topic for each event type.
type Topics struct {
	Registered string
	Deleted    string
}

// KafkaPublisher writes events as JSON keyed by identity id, so all events
// for one identity land on the same partition.
type KafkaPublisher struct {
	writer messageWriter
	topics Topics
}

// NewKafkaPublisher returns a publisher for brokers. Call Close when shutting down.
func NewKafkaPublisher(brokers []string, topics Topics) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("events: no kafka brokers")
	}
	if topics.Registered == "" || topics.Deleted == "" {
		return nil, errors.New("events: topics must be set")
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}
	return &KafkaPublisher{writer: writer, topics: topics}, nil
}

// IdentityRegistered writes e to the registered topic.
func (p *KafkaPublisher) IdentityRegistered(ctx context.Context, e IdentityRegistered) error {
	payload, err := encodeRegistered(e)
	if err != nil {
		return err
	}
	return p.write(ctx, p.topics.Registered, e.ID, payload)
}

// IdentityDeleted writes e to the deleted topic.
func (p *KafkaPublisher) IdentityDeleted(ctx context.Context, e IdentityDeleted) error {
	payload, err := encodeDeleted(e)
	if err != nil {
		return err
	}
	return p.write(ctx, p.topics.Deleted, e.ID, payload)
}

// Uses a short timeout so a slow broker does not hold the request.
func (p *KafkaPublisher) write(ctx context.Context, topic, key string, payload []byte) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return p.writer.WriteMessages(writeCtx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
	})
}

// Close flushes and closes the writer. Safe to call on a nil publisher.
func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
