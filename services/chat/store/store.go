// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store provides read and write access to workspace data.
//
// # Description
//
// The Store interface is the authorization boundary for everything the
// assistant's action executor and the HTTP handlers read. Every query
// takes the requesting user's ID and returns only data that user's
// memberships allow. Callers never pass raw filters through to the
// database without that scoping.
//
// # Thread Safety
//
// All implementations are safe for concurrent use.
package store

import (
	"context"
	"errors"

	"github.com/jinterlante1206/AleutianRelay/services/chat/datatypes"
)

// =============================================================================
// Errors
// =============================================================================

// ErrChannelNotFound is returned when a channel does not exist or the
// requesting user is not a member of it. The two cases are deliberately
// indistinguishable to callers: a channel outside the user's scope must
// not be observable at all.
var ErrChannelNotFound = errors.New("channel not found")

// ErrNoWorkspace is returned when the requesting user has no workspace
// membership.
var ErrNoWorkspace = errors.New("user belongs to no workspace")

// =============================================================================
// Interfaces
// =============================================================================

// Store defines read access to workspace data, scoped to a requesting user.
//
// # Description
//
// Every method takes the requesting user's ID as its scoping key. The
// assistant executor resolves model-emitted directives through this
// interface, so the scoping here is the primary security invariant of
// the assistant subsystem: directive parameters are attacker-influenced
// and must never widen what the user could see by hand.
type Store interface {
	// ChannelByName resolves a channel by name within the user's scope.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation and tracing.
	//   - userID: The requesting user. Only channels this user belongs
	//     to are considered.
	//   - name: Channel name; a leading '#' is tolerated and case is
	//     ignored.
	//
	// # Outputs
	//
	//   - *datatypes.Channel: The resolved channel.
	//   - error: ErrChannelNotFound if no matching channel is visible to
	//     the user; other errors for backend failures.
	ChannelByName(ctx context.Context, userID, name string) (*datatypes.Channel, error)

	// RecentMessages returns up to limit messages for a channel, newest
	// first. The caller is responsible for having resolved the channel
	// through ChannelByName (which enforces membership).
	RecentMessages(ctx context.Context, channelID string, limit int) ([]datatypes.ChannelMessage, error)

	// ListChannels returns channels the user belongs to whose name or
	// description contains the filter (case-insensitive substring). An
	// empty filter matches everything. At most limit results.
	ListChannels(ctx context.Context, userID, filter string, limit int) ([]datatypes.Channel, error)

	// ListWorkspaceMembers returns members of the user's workspace whose
	// status message or role contains the filter (case-insensitive
	// substring). An empty filter matches everything. At most limit
	// results. Returns ErrNoWorkspace if the user has no workspace.
	ListWorkspaceMembers(ctx context.Context, userID, filter string, limit int) ([]datatypes.Member, error)

	// MemberByUserID returns the user's own membership record, or
	// ErrNoWorkspace if the user has none.
	MemberByUserID(ctx context.Context, userID string) (*datatypes.Member, error)

	// UserChannelIDs returns the IDs of every channel the user belongs
	// to. Used to build access filters for semantic retrieval.
	UserChannelIDs(ctx context.Context, userID string) ([]string, error)
}

// MessageWriter defines write access for posting channel messages.
//
// Separated from Store so the assistant executor, which is strictly
// read-only, cannot be handed a writable handle by accident.
type MessageWriter interface {
	// PostMessage appends a message to a channel the user belongs to and
	// indexes it for semantic retrieval. Returns the stored message.
	PostMessage(ctx context.Context, userID, channelName, content string) (*datatypes.ChannelMessage, error)
}
