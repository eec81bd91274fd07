// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"net/http"
	"sync"

	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jinterlante1206/AleutianRelay/services/chat/events"
)

// WSRequest is a client frame on the assistant websocket.
type WSRequest struct {
	Action     string `json:"action"`                // "subscribe", "unsubscribe"
	ExchangeID string `json:"exchange_id,omitempty"` // target exchange
}

// The socket only carries small JSON control frames and ExchangeEvents,
// so the upgrader's default buffer sizes are plenty.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsConn wraps a websocket connection with a write lock so event
// forwarders and the control loop can both send frames.
type wsConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *wsConn) sendJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.ws.WriteJSON(v)
	if err != nil {
		slog.Warn("Failed to write WebSocket JSON", "error", err)
	}
	return err
}

// HandleAssistantWebSocket serves GET /v1/assistant/ws.
//
// # Description
//
// The side-channel delivery surface for asynchronous assistant
// continuations. After connecting, the client sends
//
//	{"action":"subscribe","exchange_id":"<id>"}
//
// for each exchange ID it was handed by POST /v1/assistant/chat.
// Follow-up events stream back as ExchangeEvent frames; events
// published before the subscribe are replayed first. A subscription
// ends when its finished event has been forwarded or the client sends
// an unsubscribe for it. One connection can watch several exchanges.
func HandleAssistantWebSocket(hub *events.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("failed to upgrade the websocket", "error", err)
			return
		}
		defer ws.Close()

		conn := &wsConn{ws: ws}
		sessionID := uuid.New().String()
		slog.Info("New assistant websocket session", "sessionID", sessionID)

		if err := conn.sendJSON(map[string]interface{}{
			"action":    "session_created",
			"sessionId": sessionID,
		}); err != nil {
			return
		}

		// Per-exchange cancel functions for this connection. Entries are
		// removed as they are cancelled so the teardown here and the
		// forwarder goroutines never run the same cancel twice.
		var mu sync.Mutex
		cancels := make(map[string]func())
		defer func() {
			mu.Lock()
			defer mu.Unlock()
			for id, cancel := range cancels {
				delete(cancels, id)
				cancel()
			}
		}()

		for {
			var req WSRequest
			if err := ws.ReadJSON(&req); err != nil {
				slog.Info("Websocket client disconnected", "error", err.Error())
				return
			}

			switch req.Action {
			case "subscribe":
				if req.ExchangeID == "" {
					_ = conn.sendJSON(map[string]interface{}{"error": "missing exchange_id"})
					continue
				}
				mu.Lock()
				if _, dup := cancels[req.ExchangeID]; dup {
					mu.Unlock()
					continue
				}
				ch, cancel := hub.Subscribe(req.ExchangeID)
				cancels[req.ExchangeID] = cancel
				mu.Unlock()

				go func(exchangeID string) {
					for event := range ch {
						if conn.sendJSON(event) != nil {
							break
						}
						if event.Finished {
							break
						}
					}
					mu.Lock()
					if cancel, found := cancels[exchangeID]; found {
						delete(cancels, exchangeID)
						cancel()
					}
					mu.Unlock()
				}(req.ExchangeID)

			case "unsubscribe":
				mu.Lock()
				if cancel, found := cancels[req.ExchangeID]; found {
					delete(cancels, req.ExchangeID)
					cancel()
				}
				mu.Unlock()

			default:
				slog.Warn("Unknown websocket action", "action", req.Action)
				_ = conn.sendJSON(map[string]interface{}{"error": "unknown action"})
			}
		}
	}
}
