// Package events is the in-process publish/subscribe fabric between the
// round manager and the push surfaces. Delivery is synchronous: Publish
// calls every subscriber on the publisher's goroutine, so handlers must be
// fast and non-blocking (the websocket hub hands off to buffered channels).
package events

import (
	"sync"
	"time"
)

// Topic names the event kinds the engine emits.
type Topic string

const (
	TopicRoundCreated      Topic = "round_created"
	TopicParticipantJoined Topic = "participant_joined"
	TopicRoundStarted      Topic = "round_started"
	TopicRoundEnded        Topic = "round_ended"
	TopicLeaderboardUpdate Topic = "leaderboard_update"
)

// Event is one published occurrence. Payload carries the topic-specific
// body (a round, a participant, a leaderboard slice).
type Event struct {
	Topic     Topic     `json:"topic"`
	RoundID   string    `json:"round_id,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Handler receives published events. Must not block.
type Handler func(Event)

// Bus fans events out to handlers. Zero value is not usable, call NewBus.
type Bus struct {
	mu       sync.RWMutex
	handlers map[int]Handler
	nextID   int
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[int]Handler)}
}

// Subscribe registers a handler for all topics and returns an unsubscribe
// function. Handlers filter by topic themselves.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}
}

// Publish delivers the event to every current subscriber. Delivery order
// across subscribers is not guaranteed.
func (b *Bus) Publish(topic Topic, roundID string, payload any) {
	ev := Event{Topic: topic, RoundID: roundID, Payload: payload, Timestamp: time.Now()}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}
