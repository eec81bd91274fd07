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
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jinterlante1206/AleutianRelay/pkg/extensions"
	"github.com/jinterlante1206/AleutianRelay/services/chat/datatypes"
	"github.com/jinterlante1206/AleutianRelay/services/chat/middleware"
	"github.com/jinterlante1206/AleutianRelay/services/chat/store"
	"github.com/jinterlante1206/AleutianRelay/services/llm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testAuth injects an authenticated user the way the real auth
// middleware would, without requiring tokens in tests.
func testAuth(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		middleware.SetAuthInfo(c, &extensions.AuthInfo{UserID: userID})
		c.Next()
	}
}

// performRequest executes an HTTP request against the router and
// returns the recorded response.
func performRequest(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req, _ := http.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// performRawRequest sends an arbitrary request body, for malformed
// payload cases performRequest cannot produce.
func performRawRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// memStore is a map-backed store.Store and store.MessageWriter with the
// same membership scoping as the Weaviate implementation.
type memStore struct {
	channels []datatypes.Channel
	messages map[string][]datatypes.ChannelMessage
	members  []datatypes.Member
	postErr  error
}

var (
	_ store.Store         = (*memStore)(nil)
	_ store.MessageWriter = (*memStore)(nil)
)

func newMemStore() *memStore {
	return &memStore{
		channels: []datatypes.Channel{
			{ID: "ch-general", WorkspaceID: "ws-1", Name: "general",
				Description: "Company wide chatter", MemberIDs: []string{"alice", "bob"}},
			{ID: "ch-secret", WorkspaceID: "ws-1", Name: "leadership",
				Description: "Private planning", MemberIDs: []string{"bob"}},
		},
		messages: map[string][]datatypes.ChannelMessage{
			"ch-general": {
				{ID: "m2", ChannelID: "ch-general", SenderID: "bob", SenderName: "Bob", Content: "deployed", Timestamp: 2000},
				{ID: "m1", ChannelID: "ch-general", SenderID: "alice", SenderName: "Alice", Content: "PR is up", Timestamp: 1000},
			},
		},
		members: []datatypes.Member{
			{UserID: "alice", WorkspaceID: "ws-1", DisplayName: "Alice", Role: "admin", StatusMessage: "oncall"},
			{UserID: "bob", WorkspaceID: "ws-1", DisplayName: "Bob", Role: "member", StatusMessage: "heads down"},
		},
	}
}

func (m *memStore) visible(c datatypes.Channel, userID string) bool {
	for _, id := range c.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (m *memStore) ChannelByName(_ context.Context, userID, name string) (*datatypes.Channel, error) {
	normalized := store.NormalizeChannelName(name)
	for _, c := range m.channels {
		if c.Name == normalized && m.visible(c, userID) {
			return &c, nil
		}
	}
	return nil, store.ErrChannelNotFound
}

func (m *memStore) RecentMessages(_ context.Context, channelID string, limit int) ([]datatypes.ChannelMessage, error) {
	msgs := m.messages[channelID]
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

func (m *memStore) ListChannels(_ context.Context, userID, filter string, limit int) ([]datatypes.Channel, error) {
	var out []datatypes.Channel
	for _, c := range m.channels {
		if !m.visible(c, userID) {
			continue
		}
		if filter != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(filter)) &&
			!strings.Contains(strings.ToLower(c.Description), strings.ToLower(filter)) {
			continue
		}
		out = append(out, c)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) MemberByUserID(_ context.Context, userID string) (*datatypes.Member, error) {
	for _, mem := range m.members {
		if mem.UserID == userID {
			return &mem, nil
		}
	}
	return nil, store.ErrNoWorkspace
}

func (m *memStore) ListWorkspaceMembers(ctx context.Context, userID, filter string, limit int) ([]datatypes.Member, error) {
	self, err := m.MemberByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	var out []datatypes.Member
	for _, mem := range m.members {
		if mem.WorkspaceID != self.WorkspaceID {
			continue
		}
		if filter != "" && !strings.Contains(strings.ToLower(mem.StatusMessage), strings.ToLower(filter)) &&
			!strings.Contains(strings.ToLower(mem.Role), strings.ToLower(filter)) {
			continue
		}
		out = append(out, mem)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) UserChannelIDs(_ context.Context, userID string) ([]string, error) {
	var ids []string
	for _, c := range m.channels {
		if m.visible(c, userID) {
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}

func (m *memStore) PostMessage(ctx context.Context, userID, channelName, content string) (*datatypes.ChannelMessage, error) {
	if m.postErr != nil {
		return nil, m.postErr
	}
	channel, err := m.ChannelByName(ctx, userID, channelName)
	if err != nil {
		return nil, err
	}
	msg := datatypes.ChannelMessage{
		ID:        "m-new",
		ChannelID: channel.ID,
		SenderID:  userID,
		Content:   content,
	}
	m.messages[channel.ID] = append([]datatypes.ChannelMessage{msg}, m.messages[channel.ID]...)
	return &msg, nil
}

// staticLLM answers every call with the same text or error.
type staticLLM struct {
	answer string
	err    error
}

func (s *staticLLM) Chat(context.Context, []datatypes.Message, llm.GenerationParams) (string, error) {
	return s.answer, s.err
}

// emptyRetriever returns no context snippets, like a fresh workspace.
type emptyRetriever struct{}

func (emptyRetriever) Retrieve(context.Context, string, string) ([]datatypes.ContextSnippet, error) {
	return nil, nil
}

// nopPublisher discards side-channel events.
type nopPublisher struct{}

func (nopPublisher) Publish(string, datatypes.ExchangeEvent) {}
