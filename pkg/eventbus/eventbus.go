// Package eventbus routes engine events over a watermill pub/sub channel.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/eventra-io/accredo/pkg/events"
)

// Handler consumes one decoded event payload.
type Handler func(ctx context.Context, payload json.RawMessage) error

// EventBus publishes and subscribes to engine events. Publish satisfies
// workflow.EventPublisher.
type EventBus interface {
	Publish(ctx context.Context, event any) error
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Close() error
}

// WatermillEventBus adapts a watermill publisher/subscriber pair.
type WatermillEventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
}

// NewWatermillEventBus wraps a publisher/subscriber pair.
func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber) *WatermillEventBus {
	return &WatermillEventBus{publisher: pub, subscriber: sub}
}

// topicFor maps event payload types to their bus topics.
func topicFor(event any) (string, error) {
	switch event.(type) {
	case events.ParticipantTransitioned:
		return events.TopicParticipantTransitioned, nil
	case events.OperationCompleted:
		return events.TopicOperationCompleted, nil
	case events.SLABreached:
		return events.TopicSLABreached, nil
	case events.Notification:
		return events.TopicNotification, nil
	default:
		return "", fmt.Errorf("unknown event type %T", event)
	}
}

func (eb *WatermillEventBus) Publish(_ context.Context, event any) error {
	topic, err := topicFor(event)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewULID(), payload)

	return eb.publisher.Publish(topic, msg)
}

func (eb *WatermillEventBus) Subscribe(ctx context.Context, topic string, handler Handler) error {
	messages, err := eb.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	go func() {
		for msg := range messages {
			err := handler(ctx, json.RawMessage(msg.Payload))
			if err != nil {
				msg.Nack()

				continue
			}

			msg.Ack()
		}
	}()

	return nil
}

func (eb *WatermillEventBus) Close() error {
	err := eb.publisher.Close()
	if err != nil {
		return err
	}

	return eb.subscriber.Close()
}
