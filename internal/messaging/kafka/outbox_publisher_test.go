package kafka

import (
	"context"
	"testing"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestOutboxPublisherWithoutProducer(t *testing.T) {
	publisher := &OutboxTopicPublisher{}

	err := publisher.Publish(context.Background(), domain.OutboxMessage{ID: "msg-1"})
	if err == nil {
		t.Fatal("publish without producer must fail")
	}
}

func TestNewOutboxPublisherDefaultsTopic(t *testing.T) {
	publisher := NewOutboxPublisher(nil, "")

	typed, ok := publisher.(*OutboxTopicPublisher)
	if !ok {
		t.Fatalf("unexpected publisher type %T", publisher)
	}
	if typed.topic != TopicOrderEvents {
		t.Fatalf("topic = %s, want %s", typed.topic, TopicOrderEvents)
	}
}

func TestNewCheckoutEvent(t *testing.T) {
	event := NewCheckoutEvent(EventTypeOrderPlaced, "order-1", "user-1", map[string]interface{}{"total_minor": int64(500)})

	if event.EventType != EventTypeOrderPlaced {
		t.Fatalf("event type = %s", event.EventType)
	}
	if event.OrderID != "order-1" || event.UserID != "user-1" {
		t.Fatal("order/user ids must be carried through")
	}
	if event.Timestamp.IsZero() {
		t.Fatal("timestamp must be set")
	}
	if event.Timestamp.Location() != event.Timestamp.UTC().Location() {
		t.Fatal("timestamp must be UTC")
	}
}
