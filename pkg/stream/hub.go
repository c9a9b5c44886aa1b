package stream

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Event is one realtime notification pushed to connected counterparties.
type Event struct {
	Type          string          `json:"type"`
	NegotiationID string          `json:"negotiation_id,omitempty"`
	At            string          `json:"at"`
	Data          json.RawMessage `json:"data,omitempty"`
}

func NewEvent(eventType, negotiationID string, data interface{}) Event {
	evt := Event{
		Type:          eventType,
		NegotiationID: negotiationID,
		At:            time.Now().UTC().Format(time.RFC3339Nano),
	}
	if data != nil {
		evt.Data, _ = json.Marshal(data)
	}
	return evt
}

const defaultSubscriberBuffer = 32

// Hub fans events out to subscribers. Slow subscribers drop events rather
// than blocking the publisher; Dropped reports how many were shed.
type Hub struct {
	mu      sync.RWMutex
	subs    map[chan Event]struct{}
	dropped atomic.Uint64
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

func (h *Hub) Subscribe(buffer int) chan Event {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	ch := make(chan Event, buffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe removes and closes the channel. Safe to call twice.
func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	_, exists := h.subs[ch]
	delete(h.subs, ch)
	h.mu.Unlock()
	if exists {
		close(ch)
	}
}

func (h *Hub) Publish(evt Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- evt:
		default:
			h.dropped.Add(1)
		}
	}
}

func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}
