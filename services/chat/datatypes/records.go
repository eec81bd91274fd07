// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides data structures for the chat service.
//
// This file contains the core workspace records (channels, messages,
// members) shared by the store, the handlers, and the assistant core.
// For assistant request/response types, see assistant.go.
package datatypes

// Message is a single role/content entry in an LLM conversation.
//
// Role is one of "system", "user", or "assistant". Ordering of a
// []Message slice is significant and must be preserved verbatim when
// re-submitted to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Channel is a named conversation space inside a workspace.
type Channel struct {
	// ID is the channel's stable identifier (UUID).
	ID string `json:"id"`

	// WorkspaceID is the owning workspace.
	WorkspaceID string `json:"workspace_id"`

	// Name is the channel name without the leading '#'.
	Name string `json:"name"`

	// Description is the channel topic/description. May be empty.
	Description string `json:"description"`

	// MemberIDs are the user IDs with access to this channel.
	MemberIDs []string `json:"member_ids"`
}

// MemberCount returns the number of users with access to the channel.
func (c *Channel) MemberCount() int {
	return len(c.MemberIDs)
}

// ChannelMessage is a message posted to a channel.
type ChannelMessage struct {
	// ID is the message's stable identifier (UUID).
	ID string `json:"id"`

	// ChannelID is the channel this message was posted to.
	ChannelID string `json:"channel_id"`

	// SenderID is the posting user's ID.
	SenderID string `json:"sender_id"`

	// SenderName is the posting user's display name, resolved at write
	// time so reads don't need a second lookup.
	SenderName string `json:"sender_name"`

	// Content is the message body.
	Content string `json:"content"`

	// Timestamp is Unix milliseconds (UTC) when the message was posted.
	Timestamp int64 `json:"timestamp"`
}

// Member is a user's membership record within a workspace.
type Member struct {
	// UserID is the member's user ID.
	UserID string `json:"user_id"`

	// WorkspaceID is the workspace this membership belongs to.
	WorkspaceID string `json:"workspace_id"`

	// DisplayName is the resolved display name shown in the UI.
	DisplayName string `json:"display_name"`

	// Role is the member's workspace role (e.g. "admin", "member").
	Role string `json:"role"`

	// StatusMessage is the member's free-text status. May be empty.
	StatusMessage string `json:"status_message"`
}

// ContextSnippet is a semantically relevant piece of historical channel
// content returned by the retrieval layer to seed the assistant's
// context window.
type ContextSnippet struct {
	// Content is the snippet text.
	Content string `json:"content"`

	// ChannelID is the channel the snippet came from.
	ChannelID string `json:"channel_id"`

	// Certainty is the similarity score from vector search, in [0, 1].
	Certainty float64 `json:"certainty"`
}
