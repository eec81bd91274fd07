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
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jinterlante1206/AleutianRelay/pkg/extensions"
	"github.com/jinterlante1206/AleutianRelay/services/chat/datatypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func channelsRouter(s *memStore, userID string) *gin.Engine {
	opts := extensions.DefaultOptions()
	router := gin.New()
	router.Use(testAuth(userID))
	router.GET("/v1/channels", HandleListChannels(s))
	router.GET("/v1/channels/:name/messages", HandleGetMessages(s))
	router.POST("/v1/channels/:name/messages", HandlePostMessage(s, opts))
	router.GET("/v1/workspace/members", HandleListMembers(s))
	return router
}

// TestHandleListChannels verifies listing is scoped to the user's
// memberships and hides member IDs.
func TestHandleListChannels(t *testing.T) {
	router := channelsRouter(newMemStore(), "alice")

	w := performRequest(router, "GET", "/v1/channels", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "general")
	assert.NotContains(t, body, "leadership")
	assert.Contains(t, body, "member_count")
	assert.NotContains(t, body, "member_ids")
}

// TestHandleListChannels_Filter verifies the substring filter.
func TestHandleListChannels_Filter(t *testing.T) {
	router := channelsRouter(newMemStore(), "bob")

	w := performRequest(router, "GET", "/v1/channels?filter=planning", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "leadership")
	assert.NotContains(t, w.Body.String(), "general")
}

// TestHandleGetMessages verifies messages come back for a visible
// channel, with the leading '#' tolerated in the path.
func TestHandleGetMessages(t *testing.T) {
	router := channelsRouter(newMemStore(), "alice")

	w := performRequest(router, "GET", "/v1/channels/general/messages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "deployed")
	assert.Contains(t, w.Body.String(), "PR is up")
}

// TestHandleGetMessages_NotFound verifies both a missing channel and a
// channel outside the user's membership return the same 404.
func TestHandleGetMessages_NotFound(t *testing.T) {
	router := channelsRouter(newMemStore(), "alice")

	for _, name := range []string{"nonexistent", "leadership"} {
		w := performRequest(router, "GET", "/v1/channels/"+name+"/messages", nil)
		assert.Equal(t, http.StatusNotFound, w.Code, "channel: %s", name)
		assert.Contains(t, w.Body.String(), "channel not found")
	}
}

// TestHandlePostMessage verifies posting stores the message and returns
// it with a 201.
func TestHandlePostMessage(t *testing.T) {
	s := newMemStore()
	router := channelsRouter(s, "alice")

	w := performRequest(router, "POST", "/v1/channels/general/messages",
		gin.H{"content": "shipping it"})
	require.Equal(t, http.StatusCreated, w.Code)

	msgs := s.messages["ch-general"]
	require.NotEmpty(t, msgs)
	assert.Equal(t, "shipping it", msgs[0].Content)
	assert.Equal(t, "alice", msgs[0].SenderID)
}

// TestHandlePostMessage_Validation verifies empty and oversized bodies
// are rejected before touching the store.
func TestHandlePostMessage_Validation(t *testing.T) {
	router := channelsRouter(newMemStore(), "alice")

	w := performRequest(router, "POST", "/v1/channels/general/messages", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(router, "POST", "/v1/channels/general/messages",
		gin.H{"content": strings.Repeat("a", datatypes.MaxMessageContentBytes+1)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "too large")
}

// TestHandlePostMessage_ChannelNotFound verifies posting to an
// invisible channel is a 404.
func TestHandlePostMessage_ChannelNotFound(t *testing.T) {
	router := channelsRouter(newMemStore(), "alice")

	w := performRequest(router, "POST", "/v1/channels/leadership/messages",
		gin.H{"content": "hello?"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestHandleListMembers verifies the workspace roster with filtering.
func TestHandleListMembers(t *testing.T) {
	router := channelsRouter(newMemStore(), "alice")

	w := performRequest(router, "GET", "/v1/workspace/members", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Alice")
	assert.Contains(t, w.Body.String(), "Bob")

	w = performRequest(router, "GET", "/v1/workspace/members?filter=oncall", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Alice")
	assert.NotContains(t, w.Body.String(), "Bob")
}

// TestHandleListMembers_NoWorkspace verifies a user with no membership
// record gets a 404.
func TestHandleListMembers_NoWorkspace(t *testing.T) {
	router := channelsRouter(newMemStore(), "stranger")

	w := performRequest(router, "GET", "/v1/workspace/members", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "no workspace membership")
}
