package repository

import (
	"context"

	"SignalPull/internal/domain/models"
	domrepo "SignalPull/internal/domain/repository"
)

// producer is the part of pkg/kafka.Producer the publisher uses.
type producer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaSignalPublisher implements SignalPublisher for Kafka.
// Events are keyed by strategy so each strategy's transitions stay ordered.
type KafkaSignalPublisher struct {
	producer producer
	topic    string
}

// NewKafkaSignalPublisher creates Kafka publisher.
func NewKafkaSignalPublisher(p producer, topic string) domrepo.SignalPublisher {
	return &KafkaSignalPublisher{producer: p, topic: topic}
}

func (p *KafkaSignalPublisher) PublishEvent(ctx context.Context, ev models.SignalEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.Strategy), ev)
}

func (p *KafkaSignalPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// SignalEventSink forwards signal transitions from published snapshots.
type SignalEventSink struct {
	pub domrepo.SignalPublisher
}

func NewSignalEventSink(pub domrepo.SignalPublisher) *SignalEventSink {
	return &SignalEventSink{pub: pub}
}

func (s *SignalEventSink) Name() string { return "signal_events" }

func (s *SignalEventSink) Publish(ctx context.Context, snap models.Snapshot) error {
	if !snap.Transition.Changed() {
		return nil
	}
	return s.pub.PublishEvent(ctx, models.EventFromSnapshot(snap))
}
