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
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jinterlante1206/AleutianRelay/services/chat/datatypes"
	"github.com/jinterlante1206/AleutianRelay/services/chat/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func websocketTestServer(t *testing.T, hub *events.Hub) *httptest.Server {
	t.Helper()
	router := gin.New()
	router.GET("/ws", HandleAssistantWebSocket(hub))
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func dialWebsocket(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	var hello map[string]any
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, "session_created", hello["action"])
	return conn
}

func followupEvent(exchangeID, content string, finished bool) datatypes.ExchangeEvent {
	return datatypes.ExchangeEvent{
		ExchangeID: exchangeID,
		Event:      "assistant_followup",
		Content:    content,
		Finished:   finished,
		Timestamp:  time.Now().UnixMilli(),
	}
}

// TestHandleAssistantWebSocket_SubscribeDelivers verifies the basic
// subscribe-then-receive flow including the finished frame.
func TestHandleAssistantWebSocket_SubscribeDelivers(t *testing.T) {
	hub := events.NewHub(nil)
	srv := websocketTestServer(t, hub)
	conn := dialWebsocket(t, srv)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(WSRequest{Action: "subscribe", ExchangeID: "ex-1"}))

	// The subscription races the publish; retry until the forwarder is
	// attached and the first frame arrives.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	go func() {
		for i := 0; i < 50; i++ {
			hub.Publish("ex-1", followupEvent("ex-1", "working on it", false))
			time.Sleep(20 * time.Millisecond)
		}
	}()

	var event datatypes.ExchangeEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "ex-1", event.ExchangeID)
	assert.Equal(t, "working on it", event.Content)
	assert.False(t, event.Finished)
}

// TestHandleAssistantWebSocket_DisconnectWhileSubscribed verifies a
// client dropping its connection with a live subscription tears the
// subscription down cleanly. The connection teardown and the event
// forwarder both reach the subscription's cancel path; neither may
// close the hub channel twice.
func TestHandleAssistantWebSocket_DisconnectWhileSubscribed(t *testing.T) {
	hub := events.NewHub(nil)
	srv := websocketTestServer(t, hub)
	conn := dialWebsocket(t, srv)

	require.NoError(t, conn.WriteJSON(WSRequest{Action: "subscribe", ExchangeID: "ex-1"}))

	// Confirm the subscription is live before dropping the client.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
			}
			hub.Publish("ex-1", followupEvent("ex-1", "first", false))
			time.Sleep(20 * time.Millisecond)
		}
	}()
	var event datatypes.ExchangeEvent
	require.NoError(t, conn.ReadJSON(&event))
	close(stop)

	require.NoError(t, conn.Close())

	// Give the server's teardown and the forwarder time to race. A
	// double close of the subscriber channel would panic the process
	// and fail the whole test binary.
	time.Sleep(100 * time.Millisecond)

	// The hub must still serve fresh subscribers for the same exchange.
	ch, cancel := hub.Subscribe("ex-1")
	defer cancel()
	hub.Publish("ex-1", followupEvent("ex-1", "after disconnect", true))
	select {
	case got := <-ch:
		assert.Equal(t, "after disconnect", got.Content)
		assert.True(t, got.Finished)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event after client disconnect")
	}
}

// TestHandleAssistantWebSocket_UnsubscribeStopsDelivery verifies an
// explicit unsubscribe followed by disconnect is equally clean.
func TestHandleAssistantWebSocket_UnsubscribeStopsDelivery(t *testing.T) {
	hub := events.NewHub(nil)
	srv := websocketTestServer(t, hub)
	conn := dialWebsocket(t, srv)

	require.NoError(t, conn.WriteJSON(WSRequest{Action: "subscribe", ExchangeID: "ex-1"}))
	require.NoError(t, conn.WriteJSON(WSRequest{Action: "unsubscribe", ExchangeID: "ex-1"}))

	// Closing right after the unsubscribe exercises teardown against an
	// already-cancelled subscription.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, conn.Close())
	time.Sleep(100 * time.Millisecond)

	ch, cancel := hub.Subscribe("ex-1")
	defer cancel()
	hub.Publish("ex-1", followupEvent("ex-1", "still alive", true))
	select {
	case got := <-ch:
		assert.Equal(t, "still alive", got.Content)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event after unsubscribe")
	}
}
