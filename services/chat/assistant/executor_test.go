// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package assistant

import (
	"context"
	"strings"
	"testing"

	"github.com/jinterlante1206/AleutianRelay/services/chat/datatypes"
	"github.com/jinterlante1206/AleutianRelay/services/chat/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore implements store.Store over fixture data, scoped the same
// way the real store is: only channels containing the user in
// MemberIDs and only members of the user's workspace are visible.
type fakeStore struct {
	channels []datatypes.Channel
	messages map[string][]datatypes.ChannelMessage
	members  []datatypes.Member
}

var _ store.Store = (*fakeStore)(nil)

func (f *fakeStore) visible(c datatypes.Channel, userID string) bool {
	for _, id := range c.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (f *fakeStore) ChannelByName(_ context.Context, userID, name string) (*datatypes.Channel, error) {
	normalized := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "#"))
	for _, c := range f.channels {
		if c.Name == normalized && f.visible(c, userID) {
			return &c, nil
		}
	}
	return nil, store.ErrChannelNotFound
}

func (f *fakeStore) RecentMessages(_ context.Context, channelID string, limit int) ([]datatypes.ChannelMessage, error) {
	msgs := f.messages[channelID]
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

func (f *fakeStore) ListChannels(_ context.Context, userID, filter string, limit int) ([]datatypes.Channel, error) {
	var out []datatypes.Channel
	needle := strings.ToLower(filter)
	for _, c := range f.channels {
		if !f.visible(c, userID) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(c.Name), needle) &&
			!strings.Contains(strings.ToLower(c.Description), needle) {
			continue
		}
		out = append(out, c)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) MemberByUserID(_ context.Context, userID string) (*datatypes.Member, error) {
	for _, m := range f.members {
		if m.UserID == userID {
			return &m, nil
		}
	}
	return nil, store.ErrNoWorkspace
}

func (f *fakeStore) ListWorkspaceMembers(ctx context.Context, userID, filter string, limit int) ([]datatypes.Member, error) {
	self, err := f.MemberByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	var out []datatypes.Member
	needle := strings.ToLower(filter)
	for _, m := range f.members {
		if m.WorkspaceID != self.WorkspaceID {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(m.StatusMessage), needle) &&
			!strings.Contains(strings.ToLower(m.Role), needle) {
			continue
		}
		out = append(out, m)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) UserChannelIDs(_ context.Context, userID string) ([]string, error) {
	var ids []string
	for _, c := range f.channels {
		if f.visible(c, userID) {
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}

func newFixtureStore() *fakeStore {
	return &fakeStore{
		channels: []datatypes.Channel{
			{ID: "ch-general", WorkspaceID: "ws-1", Name: "general",
				Description: "Company wide chatter", MemberIDs: []string{"alice", "bob"}},
			{ID: "ch-eng", WorkspaceID: "ws-1", Name: "engineering",
				Description: "Build things", MemberIDs: []string{"alice"}},
			{ID: "ch-secret", WorkspaceID: "ws-1", Name: "leadership",
				Description: "Private planning", MemberIDs: []string{"bob"}},
		},
		messages: map[string][]datatypes.ChannelMessage{
			"ch-general": {
				{ID: "m3", ChannelID: "ch-general", SenderID: "bob", SenderName: "Bob", Content: "deployed", Timestamp: 3000},
				{ID: "m2", ChannelID: "ch-general", SenderID: "alice", SenderName: "Alice", Content: "reviewing now", Timestamp: 2000},
				{ID: "m1", ChannelID: "ch-general", SenderID: "bob", SenderName: "Bob", Content: "PR is up", Timestamp: 1000},
			},
		},
		members: []datatypes.Member{
			{UserID: "alice", WorkspaceID: "ws-1", DisplayName: "Alice", Role: "admin", StatusMessage: "oncall this week"},
			{UserID: "bob", WorkspaceID: "ws-1", DisplayName: "Bob", Role: "member", StatusMessage: "heads down"},
			{UserID: "mallory", WorkspaceID: "ws-2", DisplayName: "Mallory", Role: "admin", StatusMessage: "oncall"},
		},
	}
}

// TestExecutor_QueryMessages verifies message lookup returns the recent
// messages with resolved sender names, newest first.
func TestExecutor_QueryMessages(t *testing.T) {
	exec := NewExecutor(newFixtureStore())

	result, ok := exec.Execute(context.Background(), "alice", QueryMessagesDirective{Channel: "#general"})
	require.True(t, ok)

	assert.Contains(t, result, "#general")
	assert.Contains(t, result, "Bob: deployed")
	assert.Contains(t, result, "Alice: reviewing now")
	assert.Contains(t, result, "Bob: PR is up")

	// Newest first.
	assert.Less(t, strings.Index(result, "deployed"), strings.Index(result, "PR is up"))
}

// TestExecutor_QueryMessages_ChannelNotFound verifies a lookup miss is
// a string result, not an error.
func TestExecutor_QueryMessages_ChannelNotFound(t *testing.T) {
	exec := NewExecutor(newFixtureStore())

	result, ok := exec.Execute(context.Background(), "alice", QueryMessagesDirective{Channel: "#nonexistent"})
	require.True(t, ok)
	assert.Contains(t, result, "not found")
}

// TestExecutor_QueryMessages_MembershipScoped verifies a channel the
// user does not belong to is indistinguishable from a missing one.
func TestExecutor_QueryMessages_MembershipScoped(t *testing.T) {
	exec := NewExecutor(newFixtureStore())

	result, ok := exec.Execute(context.Background(), "alice", QueryMessagesDirective{Channel: "#leadership"})
	require.True(t, ok)
	assert.Contains(t, result, "not found")
	assert.NotContains(t, result, "Private planning")
}

// TestExecutor_QueryChannels_Scoped verifies channel listing never
// includes channels outside the requester's membership, even when the
// filter matches them.
func TestExecutor_QueryChannels_Scoped(t *testing.T) {
	exec := NewExecutor(newFixtureStore())

	result, ok := exec.Execute(context.Background(), "alice", QueryChannelsDirective{})
	require.True(t, ok)
	assert.Contains(t, result, "#general")
	assert.Contains(t, result, "#engineering")
	assert.NotContains(t, result, "leadership")

	// Filter that matches the invisible channel by name.
	result, ok = exec.Execute(context.Background(), "alice", QueryChannelsDirective{Filter: "leadership"})
	require.True(t, ok)
	assert.NotContains(t, result, "Private planning")
}

// TestExecutor_QueryUsers verifies member lookup with filter against
// status message and role, scoped to the requester's workspace.
func TestExecutor_QueryUsers(t *testing.T) {
	exec := NewExecutor(newFixtureStore())

	result, ok := exec.Execute(context.Background(), "alice", QueryUsersDirective{Filter: "oncall"})
	require.True(t, ok)
	assert.Contains(t, result, "Alice")
	// Mallory's status matches but she is in another workspace.
	assert.NotContains(t, result, "Mallory")
}

// TestExecutor_QueryUsers_NoWorkspace verifies a requester without a
// workspace gets an explanatory string.
func TestExecutor_QueryUsers_NoWorkspace(t *testing.T) {
	exec := NewExecutor(newFixtureStore())

	result, ok := exec.Execute(context.Background(), "nobody", QueryUsersDirective{})
	require.True(t, ok)
	assert.Contains(t, result, "do not belong to a workspace")
}

// TestExecutor_UnknownDirective verifies an unknown kind produces no
// result and no panic.
func TestExecutor_UnknownDirective(t *testing.T) {
	exec := NewExecutor(newFixtureStore())

	result, ok := exec.Execute(context.Background(), "alice", UnknownDirective{Type: "query-frobnicate"})
	assert.False(t, ok)
	assert.Empty(t, result)
}
