// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package events is the side-channel transport for asynchronous
// assistant continuations. Follow-up messages are published per
// exchange ID; websocket sessions subscribe to the exchange they were
// handed and receive each event exactly as published, plus a replay of
// events published before they subscribed.
package events

import (
	"log/slog"
	"sync"

	"github.com/jinterlante1206/AleutianRelay/services/chat/datatypes"
)

// subscriberBuffer is the per-subscriber channel depth. A subscriber
// that stops draining loses events past this depth rather than
// blocking the publisher.
const subscriberBuffer = 16

// Publisher delivers one follow-up event to whatever is listening on
// the exchange.
type Publisher interface {
	Publish(exchangeID string, event datatypes.ExchangeEvent)
}

// Hub is an in-process fan-out of exchange events with a persistent
// replay buffer for late subscribers.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan datatypes.ExchangeEvent]struct{}
	replay      *ReplayBuffer
}

// NewHub creates a Hub. The replay buffer may be nil, in which case
// subscribers only see events published after they subscribe.
func NewHub(replay *ReplayBuffer) *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan datatypes.ExchangeEvent]struct{}),
		replay:      replay,
	}
}

var _ Publisher = (*Hub)(nil)

// Publish records the event in the replay buffer and fans it out to
// current subscribers. A subscriber whose buffer is full is skipped.
// The buffer write and the fan-out happen under the same lock as
// Subscribe's replay, so an event is delivered either replayed or
// live, never both.
func (h *Hub) Publish(exchangeID string, event datatypes.ExchangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.replay != nil {
		if err := h.replay.Append(exchangeID, event); err != nil {
			slog.Warn("Failed to buffer exchange event for replay", "exchangeID", exchangeID, "error", err)
		}
	}
	for ch := range h.subscribers[exchangeID] {
		select {
		case ch <- event:
		default:
			slog.Warn("Dropping exchange event for slow subscriber", "exchangeID", exchangeID)
		}
	}
}

// Subscribe registers for events on an exchange.
//
// # Description
//
// Events already published to the exchange are replayed into the
// returned channel first, so a client that receives its exchange ID
// and then connects cannot miss early follow-ups. The cancel function
// must be called when the subscriber is done; it closes the channel.
//
// # Outputs
//
//   - <-chan datatypes.ExchangeEvent: Buffered event stream.
//   - func(): Cancel function. Idempotent; extra calls are no-ops.
func (h *Hub) Subscribe(exchangeID string) (<-chan datatypes.ExchangeEvent, func()) {
	ch := make(chan datatypes.ExchangeEvent, subscriberBuffer)

	h.mu.Lock()
	if h.subscribers[exchangeID] == nil {
		h.subscribers[exchangeID] = make(map[chan datatypes.ExchangeEvent]struct{})
	}
	h.subscribers[exchangeID][ch] = struct{}{}

	// Replay happens under the lock so a concurrent Publish cannot
	// interleave a live event between two replayed ones.
	if h.replay != nil {
		buffered, err := h.replay.Events(exchangeID)
		if err != nil {
			slog.Warn("Failed to replay exchange events", "exchangeID", exchangeID, "error", err)
		}
		for _, event := range buffered {
			select {
			case ch <- event:
			default:
			}
		}
	}
	h.mu.Unlock()

	// A disconnecting client can cancel from its connection teardown and
	// its event forwarder concurrently; sync.Once keeps the second call
	// from closing ch again.
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if subs, found := h.subscribers[exchangeID]; found {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(h.subscribers, exchangeID)
				}
			}
			close(ch)
		})
	}
	return ch, cancel
}
