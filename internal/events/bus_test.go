package events

import (
	"testing"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	var a, b []Event
	bus.Subscribe(func(ev Event) { a = append(a, ev) })
	bus.Subscribe(func(ev Event) { b = append(b, ev) })

	bus.Publish(TopicRoundCreated, "r1", nil)
	bus.Publish(TopicRoundStarted, "r1", nil)

	if len(a) != 2 || len(b) != 2 {
		t.Fatalf("deliveries = %d/%d, want 2/2", len(a), len(b))
	}
	if a[0].Topic != TopicRoundCreated || a[1].Topic != TopicRoundStarted {
		t.Errorf("order not preserved per subscriber: %+v", a)
	}
	if a[0].RoundID != "r1" {
		t.Errorf("round id = %q", a[0].RoundID)
	}
	if a[0].Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	count := 0
	unsub := bus.Subscribe(func(Event) { count++ })

	bus.Publish(TopicRoundEnded, "r2", nil)
	unsub()
	bus.Publish(TopicRoundEnded, "r2", nil)

	if count != 1 {
		t.Fatalf("deliveries after unsubscribe = %d, want 1", count)
	}
}
